package rtc

import (
	"fmt"

	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerFactory routes pion's internal loggers into the global zerolog logger.
type LoggerFactory struct {
	level zerolog.Level
}

func NewLoggerFactory(level zerolog.Level) *LoggerFactory {
	return &LoggerFactory{level: level}
}

func (f *LoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &leveledLogger{
		logger: log.With().Str("module", "webrtc").Str("scope", scope).Logger().Level(f.level),
	}
}

type leveledLogger struct {
	logger zerolog.Logger
}

func (l *leveledLogger) Trace(msg string) { l.logger.Trace().Msg(msg) }
func (l *leveledLogger) Tracef(format string, args ...any) {
	l.logger.Trace().Msg(fmt.Sprintf(format, args...))
}
func (l *leveledLogger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *leveledLogger) Debugf(format string, args ...any) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}
func (l *leveledLogger) Info(msg string) { l.logger.Info().Msg(msg) }
func (l *leveledLogger) Infof(format string, args ...any) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}
func (l *leveledLogger) Warn(msg string) { l.logger.Warn().Msg(msg) }
func (l *leveledLogger) Warnf(format string, args ...any) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}
func (l *leveledLogger) Error(msg string) { l.logger.Error().Msg(msg) }
func (l *leveledLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}
