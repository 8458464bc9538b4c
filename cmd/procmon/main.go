package main

import (
	"github.com/rileyhilliard/procmon/internal/cli"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version info set via ldflags at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2026-01-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Quiet logger: the dashboard owns the terminal.
	undo, _ := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	defer undo()

	cli.SetVersionInfo(version, commit, date)
	cli.Execute()
}
