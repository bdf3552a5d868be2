package terminology

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/fhir"
)

const (
	msgTranslationSucceeded = "Translation successful"
	msgTranslationFailed    = "Translation failed"
)

// NormalizeTranslation converts a $translate Parameters response into a
// TranslationResult. Shape violations fail with *fhir.ParseError. Two
// deliberate fallbacks are logged at warn level: a match without an
// equivalence part becomes relatedto, and matches sent alongside
// result=false are dropped.
func NormalizeTranslation(original Concept, p *fhir.Parameters, logger zerolog.Logger) (*TranslationResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	res := &TranslationResult{OriginalCode: original, MappedCodes: []MappedCode{}}

	if rp, ok := p.Lookup("result"); ok {
		v, err := rp.AsBoolean("result")
		if err != nil {
			return nil, err
		}
		res.Success = v
	}

	if mp, ok := p.Lookup("message"); ok {
		v, err := mp.AsString("message")
		if err != nil {
			return nil, err
		}
		res.Message = v
	}
	if res.Message == "" {
		if res.Success {
			res.Message = msgTranslationSucceeded
		} else {
			res.Message = msgTranslationFailed
		}
	}

	matches := p.All("match")
	for i := range matches {
		path := fmt.Sprintf("match[%d]", i)
		mc, err := normalizeMatch(&matches[i], path, original, logger)
		if err != nil {
			return nil, err
		}
		res.MappedCodes = append(res.MappedCodes, mc)
	}

	if !res.Success && len(res.MappedCodes) > 0 {
		logger.Warn().
			Str("system", original.System).
			Str("code", original.Code).
			Int("dropped", len(res.MappedCodes)).
			Msg("translate returned matches with result=false, dropping them")
		res.MappedCodes = []MappedCode{}
	}
	return res, nil
}

func normalizeMatch(m *fhir.Parameter, path string, original Concept, logger zerolog.Logger) (MappedCode, error) {
	if k := m.Kind(); k != fhir.KindPart {
		return MappedCode{}, &fhir.ParseError{Path: path, Reason: fmt.Sprintf("expected part, got %q", k)}
	}

	var mc MappedCode

	cp, ok := m.Lookup("concept")
	if !ok {
		return MappedCode{}, &fhir.ParseError{Path: path, Reason: "match has no concept part"}
	}
	coding, err := cp.AsCoding(path + ".concept")
	if err != nil {
		return MappedCode{}, err
	}
	if coding.Code == "" {
		return MappedCode{}, &fhir.ParseError{Path: path + ".concept", Reason: "coding has no code"}
	}
	mc.System, mc.Code, mc.Display = coding.System, coding.Code, coding.Display

	if ep, ok := m.Lookup("equivalence"); ok {
		v, err := ep.AsCode(path + ".equivalence")
		if err != nil {
			return MappedCode{}, err
		}
		mc.Equivalence = Equivalence(v)
	}
	if mc.Equivalence == "" {
		logger.Warn().
			Str("system", original.System).
			Str("code", original.Code).
			Str("target", mc.Code).
			Msg("match has no equivalence, defaulting to relatedto")
		mc.Equivalence = EquivalenceRelatedTo
	}

	if sp, ok := m.Lookup("score"); ok {
		v, err := sp.AsDecimal(path + ".score")
		if err != nil {
			return MappedCode{}, err
		}
		if v < 0 || v > 1 {
			return MappedCode{}, &fhir.ParseError{Path: path + ".score", Reason: fmt.Sprintf("score %g outside [0,1]", v)}
		}
		mc.Score = &v
	}
	return mc, nil
}
