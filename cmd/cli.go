// SPDX-License-Identifier: MIT

// Package cmd builds the vlab command tree.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vlabsound/internal/config"
	applog "vlabsound/internal/log"
	"vlabsound/pkg/build"
)

var logger = applog.Scope("CLI")

// options holds the persistent flags and the configuration they resolve to.
type options struct {
	configPath string
	deviceID   int
	verbose    bool
	userID     string

	cfg *config.Config
	out io.Writer
}

// Execute runs the command line with args until ctx is cancelled or the
// command finishes.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand(os.Stdout)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree writing user output to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{deviceID: config.MinDeviceID, out: out}

	rootCmd := &cobra.Command{
		Use:           "vlab",
		Short:         buildInfo.Description,
		Version:       buildInfo.VersionString(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	rootCmd.SetOut(out)

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file (default: ./config.yaml when present)")
	pf.IntVarP(&opts.deviceID, "device", "d", config.MinDeviceID,
		"Input device ID, -1 for the system default. Use 'devices' to list them.")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")
	pf.StringVarP(&opts.userID, "user", "u", "",
		"User id results are saved under (overrides user_id in the config)")

	rootCmd.AddCommand(
		newAnalyzeCommand(opts),
		newDopplerCommand(opts),
		newWaveCommand(opts),
		newDevicesCommand(opts),
		newResultsCommand(opts),
	)
	return rootCmd
}

// load reads the configuration, applies the persistent flags and sets the
// process log level.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("device") {
		cfg.Audio.InputDevice = o.deviceID
	}
	if o.userID != "" {
		cfg.UserID = o.userID
	}
	if o.verbose {
		cfg.Debug = true
	}

	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		logger.Warnf("Unknown log level '%s', using INFO", cfg.LogLevel)
		level = applog.LevelInfo
	}
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	o.cfg = cfg
	logger.Debugf("Configuration loaded (user: %s, input device: %d)", cfg.UserID, cfg.Audio.InputDevice)
	return nil
}

func (o *options) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}

// setFloat copies a flag value into dst when the flag was given.
func setFloat(cmd *cobra.Command, name string, dst *float64) {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetFloat64(name)
		*dst = v
	}
}

// setString copies a flag value into dst when the flag was given.
func setString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		*dst = strings.TrimSpace(v)
	}
}
