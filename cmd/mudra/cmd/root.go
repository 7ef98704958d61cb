// Package cmd implements the mudra command line.
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

var cfg *config.Config

var rootDescription = `mudra turns a folder of hand gesture photos into a mobile classifier.

  mudra build [images-dir]    extract hand landmarks into a CSV dataset
  mudra train [dataset.csv]   train, export and verify the mobile model
  mudra predict <image>       classify one photo with the exported model
  mudra runs                  list recorded training runs

Settings come from mudra.yaml (working directory or ~/.mudra), a .env file
and MUDRA_* environment variables.`

var rootCmd = &cobra.Command{
	Use:               "mudra",
	Short:             "hand gesture dataset builder and mobile classifier trainer",
	Long:              rootDescription,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if err := initLogger(c.Log.Level); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd, trainCmd, predictCmd, runsCmd)
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogger(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	return nil
}

// openStore opens the run ledger.
func openStore() (*store.Store, error) {
	path, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	return store.New(path)
}

// newApp creates the application. The run ledger is optional: when it
// cannot be opened the pipeline still runs without recording.
func newApp() (*app.App, func()) {
	st, err := openStore()
	if err != nil {
		log.Warnf("Run ledger unavailable: %v", err)
		st = nil
	}

	a := app.New(cfg, st)
	return a, func() {
		if err := a.Close(); err != nil {
			log.Debugf("Closing detector: %v", err)
		}
		if st != nil {
			st.Close()
		}
	}
}
