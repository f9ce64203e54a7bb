package identity

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logComponent = "identity"

var _ Logger = &ZerologLogger{}

// ZerologLogger adapts a zerolog.Logger to Logger
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger tags every entry with component=identity
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: l.With().Str("component", logComponent).Logger()}
}

func (z *ZerologLogger) Debug(format string, args ...any) {
	z.log.Debug().Msgf(format, args...)
}

func (z *ZerologLogger) Info(format string, args ...any) {
	z.log.Info().Msgf(format, args...)
}

func (z *ZerologLogger) Warn(format string, args ...any) {
	z.log.Warn().Msgf(format, args...)
}

func (z *ZerologLogger) Error(format string, args ...any) {
	z.log.Error().Msgf(format, args...)
}

// defLogger writes through the global zerolog logger
type defLogger struct{}

func (defLogger) Debug(format string, args ...any) {
	log.Debug().Str("component", logComponent).Msgf(format, args...)
}

func (defLogger) Info(format string, args ...any) {
	log.Info().Str("component", logComponent).Msgf(format, args...)
}

func (defLogger) Warn(format string, args ...any) {
	log.Warn().Str("component", logComponent).Msgf(format, args...)
}

func (defLogger) Error(format string, args ...any) {
	log.Error().Str("component", logComponent).Msgf(format, args...)
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
