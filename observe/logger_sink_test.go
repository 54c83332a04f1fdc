package observe

import (
	"sync"
	"testing"
)

// recordingLogger captures calls per level for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	calls map[string][]string // level -> messages
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{calls: make(map[string][]string)}
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[level] = append(l.calls[level], msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record("error", msg) }

func TestLoggerSink_MapsSeverityToLevel(t *testing.T) {
	logger := newRecordingLogger()
	sink := NewLoggerSink(logger)

	sink.OnEvent(NewEvent(KindProgressLedger, SeverityDebug, "orchestrator", "judged"))
	sink.OnEvent(NewEvent(KindRequestSent, SeverityInfo, "orchestrator", "delegated"))
	sink.OnEvent(NewEvent(KindOuterReset, SeverityWarn, "orchestrator", "reset"))
	sink.OnEvent(NewEvent(KindError, SeverityError, "orchestrator", "failed"))

	for level, want := range map[string]string{
		"debug": "judged",
		"info":  "delegated",
		"warn":  "reset",
		"error": "failed",
	} {
		msgs := logger.calls[level]
		if len(msgs) != 1 || msgs[0] != want {
			t.Errorf("%s level: got %v, want [%s]", level, msgs, want)
		}
	}
}

func TestLoggerSink_NilLoggerIsSafe(t *testing.T) {
	sink := NewLoggerSink(nil)
	sink.OnEvent(NewEvent(KindError, SeverityError, "orchestrator", "discarded"))
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(KindRequestSent, SeverityInfo, "orchestrator", "m")
	b := NewEvent(KindRequestSent, SeverityInfo, "orchestrator", "m")

	if a.ID == "" || a.ID == b.ID {
		t.Error("events must carry unique IDs")
	}
	if a.Timestamp.IsZero() {
		t.Error("events must be timestamped")
	}
}

func TestSeverity_String(t *testing.T) {
	cases := map[Severity]string{
		SeverityDebug: "DEBUG",
		SeverityInfo:  "INFO",
		SeverityWarn:  "WARN",
		SeverityError: "ERROR",
		Severity(42):  "UNKNOWN",
	}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Errorf("Severity(%d).String() = %q, want %q", sev, got, want)
		}
	}
}
