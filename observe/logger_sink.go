package observe

import "github.com/convoke-dev/convoke/logging"

// LoggerSink bridges lifecycle events onto a logging.Logger, mapping event
// severity to log level and attaching the kind, source and counters as
// structured fields.
type LoggerSink struct {
	logger logging.Logger
}

// NewLoggerSink constructs a sink writing to the given logger.
func NewLoggerSink(logger logging.Logger) *LoggerSink {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LoggerSink{logger: logger}
}

// OnEvent implements Sink.
func (s *LoggerSink) OnEvent(ev Event) {
	args := []any{
		"kind", string(ev.Kind),
		"source", ev.Source,
		"round", ev.Counters.Round,
		"stall", ev.Counters.Stall,
		"reset", ev.Counters.Reset,
	}
	for k, v := range ev.Details {
		args = append(args, k, v)
	}

	switch ev.Severity {
	case SeverityDebug:
		s.logger.Debug(ev.Message, args...)
	case SeverityWarn:
		s.logger.Warn(ev.Message, args...)
	case SeverityError:
		s.logger.Error(ev.Message, args...)
	default:
		s.logger.Info(ev.Message, args...)
	}
}
