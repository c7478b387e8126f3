package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/sadopc/timesink/internal/probe"
	"github.com/sadopc/timesink/internal/settings"
	"github.com/sadopc/timesink/internal/store"
	"github.com/sadopc/timesink/internal/tracker"
	"github.com/sadopc/timesink/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return err
	}

	s, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	logger, logFile := newLogger(filepath.Dir(dbPath))
	if logFile != nil {
		defer logFile.Close()
	}

	if err := s.EnsureDefaultRules(); err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}

	svc := settings.NewService(s)
	snap, err := svc.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if deleted, err := s.CleanupRetention(snap.RetentionDays); err != nil {
		logger.Error("retention cleanup", "err", err)
	} else if deleted > 0 {
		logger.Info("retention cleanup", "deleted", deleted)
	}

	engine := tracker.NewEngine(s, svc, probe.New(), logger)
	controller := tracker.NewController(engine)

	app := tui.NewApp(s, svc, controller)
	p := tea.NewProgram(app, tea.WithAltScreen())

	// Engine events drive the UI; Send is safe from any goroutine.
	engine.Subscribe(func(ev tracker.Event) {
		p.Send(ev)
	})

	controller.Start()
	_, runErr := p.Run()
	controller.Stop()

	if runErr != nil {
		return runErr
	}
	return nil
}

// newLogger writes to timesink.log next to the database. If the file
// cannot be opened the logger discards everything rather than fighting
// the TUI for the terminal.
func newLogger(dir string) (*log.Logger, *os.File) {
	f, err := os.OpenFile(filepath.Join(dir, "timesink.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return log.New(io.Discard), nil
	}
	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
	})
	return logger, f
}
