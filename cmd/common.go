package cmd

import (
	"log"

	"github.com/atomicobject/assetwatch/pkg/atomicio"
	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/atomicobject/assetwatch/pkg/signals"
	"github.com/atomicobject/assetwatch/pkg/vcs"
)

// loadConfig reads --config, falling back to the built-in asset profile
// (pkg/config.Default) the way the teacher's cmd package resolves a vault
// path from flags before doing anything else.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("assetwatch: failed to load config %s: %v", configPath, err)
	}
	return cfg
}

// loggingSink builds a Sink that writes to stderr, optionally filtering out
// debug-severity noise when --debug was not passed.
func loggingSink() *signals.Sink {
	base := signals.Logging(func(format string, args ...any) {
		log.Printf(format, args...)
	})
	if debug {
		return base
	}
	return &signals.Sink{
		OnIndexingStarted:  base.IndexingStarted,
		OnIndexingFinished: base.IndexingFinished,
		OnProgressUpdated:  base.ProgressUpdated,
		OnWatcherStopped:   base.WatcherStopped,
		OnCriticalError:    base.CriticalError,
		OnLog: func(severity signals.Severity, text string) {
			if severity == signals.SeverityDebug {
				return
			}
			base.Log(severity, text)
		},
	}
}

// newWriter builds the Atomic Writer with the version-control checkout hook
// named by --vcs (defaults to none), mirroring original_source's
// configurable p4/none checkout behavior.
func newWriter() *atomicio.Writer {
	return atomicio.New(vcs.New(vcsKind))
}
