/*
Package log provides structured logging for dstore using zerolog.

It wraps github.com/rs/zerolog to give every component (manager, watcher,
transaction engine, backend adapters) a consistently tagged logger, with
configurable level and JSON/console output.

# Usage

Initializing the logger:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

Component loggers:

	mgrLog := log.WithComponent("manager")
	mgrLog.Info().Uint64("version", v).Msg("committed")

	watchLog := log.WithComponent("watcher")
	watchLog.Debug().Msg("woke on backend change")

Context helpers (WithParticipant, WithXID, WithVersion) attach the
identifiers that recur across this package's call sites without having
to repeat `.Str("participant", ...)` everywhere.

The package-level Logger is initialized to an info-level console logger
so that importing packages never need a nil check before first use;
call Init again to reconfigure.
*/
package log
