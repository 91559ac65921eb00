package appctx

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/db"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/render"
)

// testEnv isolates config lookups and returns a state path inside a temp dir.
func testEnv(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	for _, v := range []string{"TRELLO_API_KEY", "TRELLO_TOKEN", "KANBOARD_URL", "KANBOARD_TOKEN", "KANBOARD_USERNAME", "T2K_OUTPUT", "T2K_LOG_LEVEL"} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	oldCwd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldCwd) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	statePath := filepath.Join(tmpDir, "state.db")
	t.Setenv("T2K_STATE_PATH", statePath)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return statePath
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("state", "", "State database")
	cmd.Flags().StringP("output", "o", "", "Output format")
	cmd.Flags().Bool("porcelain", false, "Porcelain")
	cmd.Flags().String("log-level", "", "Log level")
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

func TestBootstrap_ConfigOnly(t *testing.T) {
	testEnv(t)

	app, err := Bootstrap(newCmd(), Options{})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config == nil {
		t.Error("Config should not be nil")
	}
	if app.DB != nil || app.State != nil {
		t.Error("state should not be opened when NeedsState is false")
	}
	if app.Trello != nil || app.Kanboard != nil {
		t.Error("clients should not be built unless requested")
	}
}

func TestBootstrap_StateRequiresInit(t *testing.T) {
	statePath := testEnv(t)

	_, err := Bootstrap(newCmd(), Options{NeedsState: true})
	if err == nil {
		t.Fatal("expected error for uninitialized state database")
	}
	if !strings.Contains(err.Error(), "state init") || !strings.Contains(err.Error(), statePath) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBootstrap_AutoMigrate(t *testing.T) {
	testEnv(t)

	app, err := Bootstrap(newCmd(), Options{NeedsState: true, AutoMigrate: true})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.State == nil {
		t.Fatal("State should be set")
	}
	if err := app.DB.RequiresMigrationError(); err != nil {
		t.Errorf("expected migrated database: %v", err)
	}

	app.Close()
	app.Close()
	if app.DB != nil {
		t.Error("DB should be nil after Close")
	}
}

func TestBootstrap_StateFlagOverride(t *testing.T) {
	testEnv(t)
	overridePath := filepath.Join(t.TempDir(), "override.db")

	database, err := db.Open(overridePath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	database.Close()

	cmd := newCmd()
	cmd.ParseFlags([]string{"--state", overridePath})

	app, err := Bootstrap(cmd, Options{NeedsState: true})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config.StatePath != overridePath {
		t.Errorf("StatePath should be override path %q, got %q", overridePath, app.Config.StatePath)
	}
}

func TestBootstrap_MissingCredentials(t *testing.T) {
	testEnv(t)

	_, err := Bootstrap(newCmd(), Options{NeedsTrello: true})
	if err == nil || !strings.Contains(err.Error(), "TRELLO_API_KEY") {
		t.Errorf("expected trello credential error, got %v", err)
	}

	_, err = Bootstrap(newCmd(), Options{NeedsKanboard: true})
	if err == nil || !strings.Contains(err.Error(), "KANBOARD_URL") {
		t.Errorf("expected kanboard config error, got %v", err)
	}
}

func TestBootstrap_Clients(t *testing.T) {
	testEnv(t)
	t.Setenv("TRELLO_API_KEY", "key")
	t.Setenv("TRELLO_TOKEN", "token")
	t.Setenv("KANBOARD_URL", "https://kanboard.example.com")
	t.Setenv("KANBOARD_TOKEN", "secret")

	app, err := Bootstrap(newCmd(), Options{NeedsTrello: true, NeedsKanboard: true})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Trello == nil || app.Kanboard == nil {
		t.Error("expected both clients")
	}
}

func TestRenderer(t *testing.T) {
	testEnv(t)
	t.Setenv("T2K_OUTPUT", "yaml")

	cmd := newCmd()
	app, err := Bootstrap(cmd, Options{})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	r, err := app.Renderer(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if r.Format() != render.FormatYAML {
		t.Errorf("expected configured format, got %q", r.Format())
	}

	cmd.ParseFlags([]string{"-o", "json"})
	r, err = app.Renderer(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if r.Format() != render.FormatJSON {
		t.Errorf("flag should override config, got %q", r.Format())
	}

	cmd.ParseFlags([]string{"-o", "xml"})
	if _, err := app.Renderer(cmd); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})

	var buf bytes.Buffer
	ConfigureLogging("quiet", &buf)
	log.Printf("hidden")
	if buf.Len() != 0 {
		t.Errorf("quiet level should discard diagnostics, got %q", buf.String())
	}

	ConfigureLogging("debug", &buf)
	log.Printf("shown")
	if !strings.Contains(buf.String(), "appctx_test.go") {
		t.Errorf("debug level should include source location, got %q", buf.String())
	}
}
