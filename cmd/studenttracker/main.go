package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/config"
	"github.com/studenttracker/client/internal/session"
	"github.com/studenttracker/client/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &commandLine{ctx: ctx, out: os.Stdout, errOut: os.Stderr}
	cli.open = cli.openApp
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// app holds what every subcommand works with
type app struct {
	cfg    *config.Config
	store  storage.Store
	sess   *session.Session
	client *api.Client
	logger *slog.Logger

	// events carries API round trips to the TUI debug panel; nil outside the TUI
	events chan api.RequestEvent

	closers []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// openApp loads the configuration and wires storage, session and API client.
// The TUI owns the terminal, so it logs JSON to the log file; the CLI logs
// text to stderr.
func (cli *commandLine) openApp(configPath string, interactive bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if interactive {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		a.logger = slog.New(slog.NewJSONHandler(f, opts))
	} else {
		a.logger = slog.New(slog.NewTextHandler(cli.errOut, opts))
	}
	slog.SetDefault(a.logger)

	a.store, err = storage.Open(cfg.Storage, cfg.StatePath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage, err)
	}
	a.closers = append(a.closers, a.store)

	a.sess, err = session.Load(a.store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	clientOpts := []api.Option{api.WithTimeout(cfg.Timeout), api.WithLogger(a.logger)}
	if interactive {
		a.events = make(chan api.RequestEvent, 64)
		events := a.events
		clientOpts = append(clientOpts, api.WithRequestHook(func(ev api.RequestEvent) {
			select {
			case events <- ev:
			default:
			}
		}))
	}
	a.client = api.NewClient(cfg.APIURL, a.sess, clientOpts...)

	a.logger.Debug("client ready", "api_url", cfg.APIURL, "storage", cfg.Storage, "config", cfg.File)
	return a, nil
}
