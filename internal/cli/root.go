package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/marcin-skalski/mondrian/internal/config"
	"github.com/marcin-skalski/mondrian/internal/daemon"
	"github.com/marcin-skalski/mondrian/internal/logging"
	"github.com/marcin-skalski/mondrian/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "mondrian",
	Short: "Show CI and code-review health as a Mondrian grid",
	Long: `Poll Jenkins and Gerrit and show build, test and review health as
coloured regions: white is good, blue almost good, yellow almost bad and
red bad.

Examples:
  mondrian                           # grid in the terminal, mondrian.yaml
  mondrian --overlay                 # small grid in the top right corner
  mondrian --no-tui --poll-interval 30s
  mondrian jobs --job nightly        # latest build of one job`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMonitor,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "mondrian.yaml", "path to config file")
	addMonitorFlags(rootCmd)
	rootCmd.AddCommand(jobsCmd, reviewCmd, versionCmd)
}

func addMonitorFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-tui", false, "disable the terminal display and log levels instead")
	cmd.Flags().Bool("throttle", false, "poll only during working hours")
	cmd.Flags().Duration("poll-interval", 0, "time between polls (overrides config)")
	cmd.Flags().Bool("fullscreen", false, "fill the terminal with the grid")
	cmd.Flags().Bool("overlay", false, "draw a small grid in the top right corner")
	cmd.MarkFlagsMutuallyExclusive("fullscreen", "overlay")
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func overridesFromFlags(cmd *cobra.Command) config.Overrides {
	var o config.Overrides

	if cmd.Flags().Changed("throttle") {
		throttle, _ := cmd.Flags().GetBool("throttle")
		o.Throttle = &throttle
	}
	o.PollInterval, _ = cmd.Flags().GetDuration("poll-interval")

	if on, _ := cmd.Flags().GetBool("fullscreen"); on {
		o.DisplayMode = config.DisplayFullscreen
	}
	if on, _ := cmd.Flags().GetBool("overlay"); on {
		o.DisplayMode = config.DisplayOverlay
	}
	return o
}

// tuiEnabled auto-detects whether the grid can be drawn in this terminal.
func tuiEnabled(cmd *cobra.Command) bool {
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	return !noTUI && os.Getenv("MONDRIAN_TUI") != "0" &&
		isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

func loadConfig(cmd *cobra.Command, o config.Overrides) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, o)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, overridesFromFlags(cmd))
	if err != nil {
		return err
	}

	enableTUI := tuiEnabled(cmd)

	logger, err := logging.Setup(cfg.LogFile, cfg.Log.Level, enableTUI)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if enableTUI {
		return runWithDisplay(ctx, cfg, logger.Logger)
	}

	logger.Info("mondrian starting (headless)", "config", cfg.Path)
	d, err := newDaemon(cfg, daemon.NewLogSink(logger.Logger), logger.Logger)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

// runWithDisplay runs the monitor in the background and the grid in the
// foreground. Quitting the grid stops the monitor; a faulted monitor closes the
// grid.
func runWithDisplay(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	p := tui.NewProgram(tui.NewModel(tui.Mode(cfg.Display.Mode)))

	sink := daemon.Sinks{tui.NewProgramSink(p), daemon.NewLogSink(logger)}
	d, err := newDaemon(cfg, sink, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mondrian starting in background", "config", cfg.Path, "display", cfg.Display.Mode)
		errCh <- d.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, tuiErr := p.Run()
	d.Stop()

	select {
	case err = <-errCh:
	case <-time.After(cfg.HTTPTimeout + time.Second):
		// a fetch is still in flight; its result no longer matters
		err = nil
	}

	if tuiErr != nil {
		return fmt.Errorf("display: %w", tuiErr)
	}
	if errors.Is(err, daemon.ErrFaulted) {
		logger.Error("monitor faulted", "err", err)
	}
	return err
}
