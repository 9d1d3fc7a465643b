// Command kagebunshin runs the shadow clone webcam effect and its training tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/kagebunshin/internal/config"
	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the settings shared by every subcommand.
type cli struct {
	configFile string
	settings   *config.Config
}

func rootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "kagebunshin",
		Short:         "Shadow clone jutsu webcam effect",
		Long:          "Make the clone seal at the camera and watch your shadow clones appear in a puff of smoke.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (default: ./config.yaml or ~/.kagebunshin/config.yaml)")

	run := c.runCommand()
	root.AddCommand(run, c.trainCommand(), c.datasetCommand())

	// Running the effect is the default.
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())

	return root
}

// load reads the configuration, applying the flags of cmd that map to config
// keys, and sets up logging.
func (c *cli) load(cmd *cobra.Command, bindings map[string]string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	v := config.New(c.configFile)
	for key, name := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	settings, err := config.FromViper(v, c.configFile != "")
	if err != nil {
		return err
	}
	c.settings = settings

	logging.Setup(logging.Options{
		Level:      settings.Log.Level,
		File:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
		MaxAgeDays: settings.Log.MaxAgeDays,
		NoColors:   settings.Log.NoColors,
	})
	return nil
}

// openStore opens the configured database, creating its directory first.
func (c *cli) openStore() (*store.Store, error) {
	path := c.settings.Store.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}
