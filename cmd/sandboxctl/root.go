package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/logging"
)

var rootCmd = &cobra.Command{
	Use:   "sandboxctl",
	Short: "Render component modules without a server",
	Long: `sandboxctl executes component modules in a local execution host and
reports the laid-out tree, optionally painted to PNG.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaults := config.Default()
	flags := rootCmd.PersistentFlags()
	flags.Float64("width", defaults.Sandbox.Width, "Container width")
	flags.Float64("height", defaults.Sandbox.Height, "Container height")
	flags.String("background", defaults.Paint.Background, "Background color for PNG output")
	flags.Duration("watchdog", defaults.Sandbox.Watchdog, "Interrupt passes running longer than this")
	flags.Duration("settle", 2*time.Second, "How long to wait for a tap to produce a new tree")
	flags.Bool("debug-state", false, "Warn when a component changes its hook count")
	flags.BoolP("verbose", "v", false, "Log host diagnostics to stderr")
	flags.String("config", "", "TOML or YAML config file supplying the defaults")
}

// sessionOptionsFrom reads the persistent flags, layered over a config file
// when one is given.
func sessionOptionsFrom(cmd *cobra.Command) (sessionOptions, error) {
	flags := cmd.Flags()

	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return sessionOptions{}, err
		}
		cfg = loaded
	}

	opts := sessionOptions{
		Width:      cfg.Sandbox.Width,
		Height:     cfg.Sandbox.Height,
		Background: cfg.Paint.Background,
		Watchdog:   cfg.Sandbox.Watchdog,
		DebugState: cfg.Sandbox.DebugState,
	}
	if flags.Changed("width") {
		opts.Width, _ = flags.GetFloat64("width")
	}
	if flags.Changed("height") {
		opts.Height, _ = flags.GetFloat64("height")
	}
	if flags.Changed("background") {
		opts.Background, _ = flags.GetString("background")
	}
	if flags.Changed("watchdog") {
		opts.Watchdog, _ = flags.GetDuration("watchdog")
	}
	if flags.Changed("debug-state") {
		opts.DebugState, _ = flags.GetBool("debug-state")
	}
	opts.Settle, _ = flags.GetDuration("settle")

	opts.Logger = zap.NewNop()
	if verbose, _ := flags.GetBool("verbose"); verbose {
		logger, err := logging.New(logging.Config{Level: "debug", Development: true, OutputPaths: []string{"stderr"}})
		if err != nil {
			return sessionOptions{}, err
		}
		opts.Logger = logger.Logger
	}
	return opts, nil
}
