package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"quill/internal/config"
	"quill/internal/ui"
	"quill/pkg/bridge"
	"quill/pkg/journal"
	"quill/pkg/protocol"
)

// runFlags holds command-line flags for the run command.
type runFlags struct {
	configPath string
	headless   bool
}

// newRunCmd creates the "quill run" subcommand.
func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the editor on stdin/stdout",
		Long: "Reads controller commands from stdin and writes events to stdout.\n" +
			"The terminal UI runs on the controlling terminal; without one, or with\n" +
			"--headless, only the bridge runs.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			cfgPath := flags.configPath
			if cfgPath == "" {
				cfgPath = paths.ConfigPath
			}
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if flags.headless {
				cfg.UI.Headless = true
			}
			if cfg.Journal.Path == "" {
				cfg.Journal.Path = paths.JournalPath
			}
			return runEditor(cmd.Context(), cfg, os.Stdin, os.Stdout, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "config file (default $QUILL_HOME/config.yaml)")
	cmd.Flags().BoolVar(&flags.headless, "headless", false, "run the bridge without the terminal UI")

	return cmd
}

// loadConfig reads, overrides from the environment, and validates.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bridgeConfig(c config.Bridge) bridge.Config {
	return bridge.Config{
		InboundCapacity:  c.InboundCapacity,
		OutboundCapacity: c.OutboundCapacity,
		MaxLineBytes:     c.MaxLineBytes,
		EchoReads:        c.EchoReads,
		WatchActiveFile:  c.WatchActiveFile,
	}
}

// runEditor runs one editor session until the UI quits, ctx is cancelled,
// or the bridge stops. Leaving on purpose sends Exit to the controller
// before the bridge shuts down.
func runEditor(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, stderr io.Writer) error {
	session := uuid.NewString()

	log, closeLog, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	log = log.With("session", session)

	opts := []bridge.Option{bridge.WithLogger(log)}
	if cfg.Journal.Enabled {
		j, err := journal.Open(ctx, cfg.Journal.Path, session, log.With("component", "journal"))
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		opts = append(opts, bridge.WithTap(j))
	}

	b := bridge.New(bridgeConfig(cfg.Bridge), in, out, opts...)
	// The bridge outlives ctx long enough to deliver Exit.
	b.Start(context.WithoutCancel(ctx))

	if cfg.UI.Headless {
		select {
		case <-ctx.Done():
		case <-b.Done():
		}
	} else if err := runUI(ctx, b, log); err != nil {
		_ = b.Shutdown()
		return err
	}

	select {
	case <-b.Done():
		return bridgeExit(b.Wait(), log)
	default:
	}

	if err := b.Send(protocol.TagExit, protocol.ExitFarewell); err != nil && !errors.Is(err, bridge.ErrClosed) {
		log.Warn("send exit", "err", err)
	}
	return bridgeExit(b.Shutdown(), log)
}

// bridgeExit maps the bridge's final error to the command's result. The
// controller closing its end is a normal way for a session to end.
func bridgeExit(err error, log *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		log.Info("controller closed the command stream")
		return nil
	}
	return fmt.Errorf("bridge: %w", err)
}

// runUI runs the terminal UI on the controlling terminal. stdin and stdout
// belong to the controller. Without a terminal it waits like headless mode.
func runUI(ctx context.Context, b *bridge.Bridge, log *slog.Logger) error {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil || !isatty.IsTerminal(tty.Fd()) {
		if tty != nil {
			_ = tty.Close()
		}
		log.Warn("no controlling terminal, running headless", "err", err)
		select {
		case <-ctx.Done():
		case <-b.Done():
		}
		return nil
	}
	defer tty.Close()

	p := tea.NewProgram(ui.New(b),
		tea.WithInput(tty),
		tea.WithOutput(tty),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
