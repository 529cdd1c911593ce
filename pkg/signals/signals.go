// Package signals defines the fire-and-forget notifications the core emits
// to whatever shell embeds it (a CLI, a GUI, an MCP server). There is no
// Qt-style signal/slot bus in Go, so this is a plain struct of optional
// callback fields; a zero-value Sink is safe to use and simply drops every
// notification.
package signals

// Sink receives the signals spec.md §6 names. Each field is optional; Emit
// methods check for nil before calling so callers need only set the ones
// they care about.
type Sink struct {
	OnIndexingStarted  func()
	OnIndexingFinished func()
	OnProgressUpdated  func(current, total int)
	OnWatcherStopped   func()
	OnCriticalError    func(title, message string)
	OnLog              func(severity Severity, text string)
}

// Severity levels for the Log signal.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func (s *Sink) IndexingStarted() {
	if s != nil && s.OnIndexingStarted != nil {
		s.OnIndexingStarted()
	}
}

func (s *Sink) IndexingFinished() {
	if s != nil && s.OnIndexingFinished != nil {
		s.OnIndexingFinished()
	}
}

func (s *Sink) ProgressUpdated(current, total int) {
	if s != nil && s.OnProgressUpdated != nil {
		s.OnProgressUpdated(current, total)
	}
}

func (s *Sink) WatcherStopped() {
	if s != nil && s.OnWatcherStopped != nil {
		s.OnWatcherStopped()
	}
}

func (s *Sink) CriticalError(title, message string) {
	if s != nil && s.OnCriticalError != nil {
		s.OnCriticalError(title, message)
	}
}

func (s *Sink) Log(severity Severity, text string) {
	if s != nil && s.OnLog != nil {
		s.OnLog(severity, text)
	}
}

// Logging returns a Sink whose OnLog writes through the given log function,
// a convenience for callers that just want stderr output (the teacher's
// pkg/cache/service.go logs directly with log.Printf rather than a
// structured logging library; CLI-facing signals follow the same style).
func Logging(logf func(format string, args ...any)) *Sink {
	return &Sink{
		OnLog: func(severity Severity, text string) {
			logf("assetwatch: [%s] %s", severity, text)
		},
		OnCriticalError: func(title, message string) {
			logf("assetwatch: CRITICAL %s: %s", title, message)
		},
	}
}
