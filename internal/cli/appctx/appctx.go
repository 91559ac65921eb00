// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, remote client construction and opening
// the state database to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/config"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/db"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/kanboard"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/render"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/state"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// DB is the opened state database (nil unless NeedsState)
	DB *db.DB

	// State is the migration journal backed by DB
	State *state.Store

	// Trello is the source client (nil unless NeedsTrello)
	Trello *trello.Client

	// Kanboard is the target client (nil unless NeedsKanboard)
	Kanboard *kanboard.Client
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
		a.State = nil
	}
}

// Renderer returns a renderer for cmd's output using the --output flag or
// the configured default format.
func (a *App) Renderer(cmd *cobra.Command) (*render.Renderer, error) {
	name := ""
	if a.Config != nil {
		name = a.Config.Output
	}
	if f := cmd.Flag("output"); f != nil && f.Changed {
		name = f.Value.String()
	}
	format, err := render.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	porcelain := false
	if f := cmd.Flag("porcelain"); f != nil {
		porcelain = f.Value.String() == "true"
	}
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format, Porcelain: porcelain}), nil
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsState opens the state database.
	NeedsState bool

	// AutoMigrate applies pending state migrations instead of failing.
	AutoMigrate bool

	// NeedsTrello and NeedsKanboard build the remote clients and require
	// their credentials.
	NeedsTrello   bool
	NeedsKanboard bool
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The state database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Override state path from --state flag if provided
	if stateFlag := cmd.Flag("state"); stateFlag != nil {
		if statePath := stateFlag.Value.String(); statePath != "" {
			app.Config.StatePath = statePath
		}
	}
	if levelFlag := cmd.Flag("log-level"); levelFlag != nil && levelFlag.Changed {
		app.Config.LogLevel = levelFlag.Value.String()
	}
	ConfigureLogging(app.Config.LogLevel, cmd.ErrOrStderr())

	if opts.NeedsTrello {
		if err := cfg.RequireTrello(); err != nil {
			return nil, err
		}
		app.Trello = trello.New(trello.Config{
			BaseURL: cfg.Trello.BaseURL,
			APIKey:  cfg.Trello.APIKey,
			Token:   cfg.Trello.Token,
		})
	}

	if opts.NeedsKanboard {
		if err := cfg.RequireKanboard(); err != nil {
			return nil, err
		}
		app.Kanboard = kanboard.New(kanboard.Config{
			URL:      cfg.Kanboard.URL,
			Username: cfg.Kanboard.Username,
			Token:    cfg.Kanboard.Token,
		})
	}

	if opts.NeedsState {
		database, err := OpenState(app.Config.StatePath, opts.AutoMigrate)
		if err != nil {
			return nil, err
		}
		app.DB = database
		app.State = state.New(database)
	}

	return app, nil
}

// OpenState opens the state database and checks that its schema is current.
// With autoMigrate, pending migrations are applied instead.
func OpenState(path string, autoMigrate bool) (*db.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if autoMigrate {
		applied, err := database.MigrateWithInfo()
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate state database: %w", err)
		}
		for _, m := range applied {
			log.Printf("state: applied migration %s", m)
		}
		return database, nil
	}

	if err := database.RequiresMigrationError(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// ConfigureLogging sets up the standard logger for the given level:
// "debug" adds source locations, "quiet" or "off" silences diagnostics.
func ConfigureLogging(level string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags)

	switch strings.ToLower(level) {
	case "debug":
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	case "quiet", "off", "silent":
		log.SetOutput(io.Discard)
	}
}
