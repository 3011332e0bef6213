package temporal

import (
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// LogAdapter routes SDK logging through zerolog. It implements log.WithLogger
// so workflow and activity scoped fields stay on the child logger.
type LogAdapter struct {
	logger zerolog.Logger
}

var (
	_ log.Logger     = (*LogAdapter)(nil)
	_ log.WithLogger = (*LogAdapter)(nil)
)

func NewLogAdapter(logger zerolog.Logger) log.Logger {
	return &LogAdapter{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

// pairs walks keyvals two at a time. A trailing key gets MISSING_VALUE and a
// non-string key is reported as INVALID_KEY.
func pairs(keyvals []interface{}, fn func(key string, value interface{})) {
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = "INVALID_KEY"
		}
		var value interface{} = "MISSING_VALUE"
		if i+1 < len(keyvals) {
			value = keyvals[i+1]
		}
		fn(key, value)
	}
}

func (a *LogAdapter) With(keyvals ...interface{}) log.Logger {
	ctx := a.logger.With()
	pairs(keyvals, func(key string, value interface{}) {
		if err, ok := value.(error); ok {
			ctx = ctx.AnErr(key, err)
			return
		}
		ctx = ctx.Interface(key, value)
	})
	return &LogAdapter{logger: ctx.Logger()}
}

func (a *LogAdapter) emit(event *zerolog.Event, msg string, keyvals []interface{}) {
	pairs(keyvals, func(key string, value interface{}) {
		if err, ok := value.(error); ok {
			event = event.AnErr(key, err)
			return
		}
		event = event.Interface(key, value)
	})
	event.Msg(msg)
}

func (a *LogAdapter) Debug(msg string, keyvals ...interface{}) {
	a.emit(a.logger.Debug(), msg, keyvals)
}

func (a *LogAdapter) Info(msg string, keyvals ...interface{}) {
	a.emit(a.logger.Info(), msg, keyvals)
}

func (a *LogAdapter) Warn(msg string, keyvals ...interface{}) {
	a.emit(a.logger.Warn(), msg, keyvals)
}

func (a *LogAdapter) Error(msg string, keyvals ...interface{}) {
	a.emit(a.logger.Error(), msg, keyvals)
}
