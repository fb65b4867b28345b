package logger

import (
	"fmt"

	"github.com/rs/zerolog"
)

type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerolog returns a Logger that forwards to the given zerolog.Logger.
// Key/value pairs are attached as string fields; a trailing key without a
// value is recorded under "!BADKEY" the way slog does it.
func NewZerolog(l zerolog.Logger) Logger {
	return &zerologLogger{logger: l}
}

func (l *zerologLogger) Error(msg string, args ...any) {
	emit(l.logger.Error(), msg, args)
}

func (l *zerologLogger) Warn(msg string, args ...any) {
	emit(l.logger.Warn(), msg, args)
}

func (l *zerologLogger) Info(msg string, args ...any) {
	emit(l.logger.Info(), msg, args)
}

func (l *zerologLogger) Debug(msg string, args ...any) {
	emit(l.logger.Debug(), msg, args)
}

func emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		ev = ev.Interface(key, args[i+1])
	}
	if len(args)%2 != 0 {
		ev = ev.Interface("!BADKEY", args[len(args)-1])
	}
	ev.Msg(msg)
}
