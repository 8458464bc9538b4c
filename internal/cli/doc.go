// Package cli implements the procmon command-line interface.
//
// Each command is a package-level cobra.Command registered on rootCmd in an
// init function. Commands share one wiring path, loadApp, which:
//
//  1. Loads and validates the config (--config, then ~/.config/procmon/config.yaml)
//  2. Builds the logrus logger writing to a dated file under logging.dir
//  3. Opens the bbolt store when the command needs it and storage is enabled,
//     attaching a hook that persists log entries
//  4. Creates the gopsutil provider the monitors sample from
//
// The app must be closed to release the store and the log file.
//
// # Command Structure
//
//	procmon              - Live dashboard (same as procmon monitor)
//	procmon ps           - Print the process list
//	procmon kill <pid>   - Terminate a process and record it
//	procmon info         - Show system information
//	procmon history      - List terminated processes
//	procmon logs         - Show persisted log entries
//	procmon config [init|show|path]
//	procmon version
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color, --json) are defined on the
// root command. With --json, commands write a JSONEnvelope to stdout, and
// Execute writes failures in the same envelope.
package cli
