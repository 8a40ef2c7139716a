package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ArCaneSec/apidock/internal/config"
	"github.com/ArCaneSec/apidock/internal/logging"
	"github.com/ArCaneSec/apidock/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	info  = color.New(color.FgGreen)
	warn  = color.New(color.FgRed, color.Bold)
	notes = color.New(color.FgCyan)
)

func exit(msg string, exitValue int) {
	if exitValue == 0 {
		info.Println(msg)
	} else {
		warn.Fprintln(os.Stderr, msg)
	}
	os.Exit(exitValue)
}

// app carries what every subcommand needs once the root command has read
// its configuration.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *slog.Logger
}

func (a *app) load() {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}
	a.cfg = cfg
	a.log = logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})
}

func (a *app) openDB(ctx context.Context) *gorm.DB {
	db, err := store.Open(ctx, store.Config{
		Driver: a.cfg.DB.Driver,
		DSN:    a.cfg.DB.DSN,
		Log:    a.log,
	})
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}
	return db
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "apidock",
		Short: "Project API documentation service",
		Long: `apidock keeps the API definitions of projects, files them under two levels
of groups and records who changed what.

Examples:
  apidock migrate
  apidock serve --config apidock.yaml
  apidock project add shop --version v1
  apidock import 1 https://petstore3.swagger.io/api/v3/openapi.json`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml, json or toml)")

	root.AddCommand(
		serveCmd(a),
		migrateCmd(a),
		flushCmd(a),
		projectCmd(a),
		importCmd(a),
		exportCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
