package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/archdrift/config"
)

func testApp(t *testing.T) (*App, string) {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Repo.Path = tmpDir

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	app, err := NewApp(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(app.Close)
	return app, tmpDir
}

func TestNewAppDefaults(t *testing.T) {
	app, _ := testApp(t)

	if app.natsConn != nil {
		t.Error("expected no NATS connection without nats.url")
	}
	if app.store == nil {
		t.Error("store not initialized")
	}
	if app.pipeline == nil {
		t.Error("pipeline not initialized")
	}
	if app.watcher == nil {
		t.Error("watcher not initialized")
	}
}

func TestAppRunEmptyRepo(t *testing.T) {
	app, _ := testApp(t)

	if err := app.Run(context.Background()); err == nil {
		t.Error("expected error for repo without recognized source files")
	}
}

func TestAppAnalyzeAndExport(t *testing.T) {
	app, tmpDir := testApp(t)
	ctx := context.Background()

	source := `"""@intent: core:entity"""

class Order:
    def total(self):
        return sum(i.price for i in self.items)
`
	if err := os.WriteFile(filepath.Join(tmpDir, "order.py"), []byte(source), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	output := filepath.Join(tmpDir, "graph.json")
	if err := app.Export(ctx, output, "json"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(data) == 0 {
		t.Error("export produced empty file")
	}
}

func TestNewAppInvalidRulesFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Repo.Path = t.TempDir()
	cfg.Detect.RulesFile = filepath.Join(cfg.Repo.Path, "missing-rules.yaml")

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if _, err := NewApp(context.Background(), cfg, logger); err == nil {
		t.Error("expected error for missing rules file")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		if newLogger(level) == nil {
			t.Errorf("newLogger(%q) returned nil", level)
		}
	}
}

func TestPathArg(t *testing.T) {
	if got := pathArg(nil); got != "" {
		t.Errorf("pathArg(nil) = %q, want empty", got)
	}
	if got := pathArg([]string{"/some/repo"}); got != "/some/repo" {
		t.Errorf("pathArg = %q, want /some/repo", got)
	}
}

func TestRootCmdSubcommands(t *testing.T) {
	cmd := rootCmd()
	want := map[string]bool{
		"analyze": false, "watch": false, "violations": false,
		"findings": false, "export": false, "version": false,
	}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %s", name)
		}
	}
}
