// Package main provides the archdrift binary entry point.
// Archdrift builds a knowledge graph from a codebase, compares declared
// architectural intent against detected structure, and flags suspicious
// constructs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/c360studio/archdrift/llm/providers"

	// Register language parsers via init()
	_ "github.com/c360studio/archdrift/parser/python"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/config"
	"github.com/c360studio/archdrift/export"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "archdrift"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "archdrift",
		Short: "Architectural drift and hallucination analyzer",
		Long: `Archdrift parses a codebase into a queryable knowledge graph,
compares declared architectural intent (@intent tags) against the
structure it actually finds, and flags constructs that look fabricated.

Analysis results can be kept in memory for one-shot runs or persisted
to NATS JetStream for incremental reanalysis.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		analyzeCmd(&logLevel),
		watchCmd(&logLevel),
		violationsCmd(&logLevel),
		findingsCmd(&logLevel),
		exportCmd(&logLevel),
		versionCmd(),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

func analyzeCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze a codebase and report drift and suspicious constructs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, err := setup(cmd.Context(), *logLevel, pathArg(args))
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Analyze(ctx)
		},
	}
}

func watchCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [path]",
		Short: "Analyze a codebase and reanalyze files as they change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, err := setup(cmd.Context(), *logLevel, pathArg(args))
			if err != nil {
				return err
			}
			defer app.Close()

			signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.Watch(signalCtx)
		},
	}
}

func violationsCmd(logLevel *string) *cobra.Command {
	var minSeverity string

	cmd := &cobra.Command{
		Use:   "violations [path]",
		Short: "Analyze a codebase and list drift violations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, err := setup(cmd.Context(), *logLevel, pathArg(args))
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Run(ctx); err != nil {
				return err
			}
			return app.PrintViolations(ctx, analysis.Severity(minSeverity))
		},
	}
	cmd.Flags().StringVar(&minSeverity, "min", "low", "Minimum severity (low, medium, high, critical)")
	return cmd
}

func findingsCmd(logLevel *string) *cobra.Command {
	var minRisk string

	cmd := &cobra.Command{
		Use:   "findings [path]",
		Short: "Analyze a codebase and list hallucination findings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, err := setup(cmd.Context(), *logLevel, pathArg(args))
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Run(ctx); err != nil {
				return err
			}
			return app.PrintFindings(ctx, analysis.RiskLevel(minRisk))
		},
	}
	cmd.Flags().StringVar(&minRisk, "min", "low", "Minimum risk level (minimal, low, medium, high, critical)")
	return cmd
}

func exportCmd(logLevel *string) *cobra.Command {
	var output string
	var format string

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Analyze a codebase and export the knowledge graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			ctx, app, err := setup(cmd.Context(), *logLevel, pathArg(args))
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Run(ctx); err != nil {
				return err
			}
			return app.Export(ctx, output, exportFormat)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, turtle, ntriples)")
	return cmd
}

// pathArg returns the optional positional repo path argument.
func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// setup loads configuration, configures logging, and builds the App.
func setup(ctx context.Context, logLevel, repoPath string) (context.Context, *App, error) {
	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if repoPath != "" {
		cfg.Repo.Path = repoPath
	}

	absRepoPath, err := filepath.Abs(cfg.Repo.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve repo path: %w", err)
	}
	info, err := os.Stat(absRepoPath)
	if err != nil {
		return nil, nil, fmt.Errorf("stat repo path: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("not a directory: %s", absRepoPath)
	}
	cfg.Repo.Path = absRepoPath

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return ctx, app, nil
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
