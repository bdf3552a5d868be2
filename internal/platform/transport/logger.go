package transport

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger zerolog.Logger
}

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

func NewLeveledLogger(logger zerolog.Logger) retryablehttp.LeveledLogger {
	return &leveledLogger{logger: logger.With().Str("component", "transport").Logger()}
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.emit(l.logger.Error(), msg, keysAndValues)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.emit(l.logger.Warn(), msg, keysAndValues)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.emit(l.logger.Debug(), msg, keysAndValues)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.emit(l.logger.Trace(), msg, keysAndValues)
}

// emit attaches alternating key/value pairs as fields. A trailing key
// without a value is logged under "extra".
func (l *leveledLogger) emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			ev = ev.Interface("extra", kv[i])
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
