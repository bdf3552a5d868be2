package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_FHIRParamsWin(t *testing.T) {
	p := FromContext(newContext("/?_count=25&_offset=5&limit=50&offset=10"))
	if p.Limit != 25 || p.Offset != 5 {
		t.Errorf("expected 25/5, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_PlainParams(t *testing.T) {
	p := FromContext(newContext("/?limit=50&offset=10"))
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestParse_Clamping(t *testing.T) {
	tests := []struct {
		limit, offset       string
		wantLimit, wantOffs int
	}{
		{"500", "0", MaxLimit, 0},
		{"-1", "-5", DefaultLimit, 0},
		{"abc", "xyz", DefaultLimit, 0},
		{"1", "3", 1, 3},
	}
	for _, tt := range tests {
		p := Parse(tt.limit, tt.offset)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffs {
			t.Errorf("Parse(%q,%q) = %d/%d, want %d/%d", tt.limit, tt.offset, p.Limit, p.Offset, tt.wantLimit, tt.wantOffs)
		}
	}
}

func TestParams_Bounds(t *testing.T) {
	tests := []struct {
		p          Params
		total      int
		start, end int
	}{
		{Params{Limit: 10, Offset: 0}, 3, 0, 3},
		{Params{Limit: 2, Offset: 2}, 5, 2, 4},
		{Params{Limit: 10, Offset: 20}, 5, 5, 5},
	}
	for _, tt := range tests {
		s, e := tt.p.Bounds(tt.total)
		if s != tt.start || e != tt.end {
			t.Errorf("Bounds(%d) for %+v = [%d,%d), want [%d,%d)", tt.total, tt.p, s, e, tt.start, tt.end)
		}
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse([]string{"a"}, 3, Params{Limit: 1, Offset: 0})
	if !r.HasMore {
		t.Error("expected has_more when more items remain")
	}
	r = NewResponse([]string{"c"}, 3, Params{Limit: 1, Offset: 2})
	if r.HasMore {
		t.Error("expected no more items on the last page")
	}
}
