package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/dagaz/internal"
	"github.com/starford/dagaz/internal/classify"
	"github.com/starford/dagaz/internal/derive"
	"github.com/starford/dagaz/internal/migrate"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/registry"
	"github.com/starford/dagaz/internal/storage"
	pkgconfig "github.com/starford/dagaz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// runMigrate is the one-shot CLI pipeline: migrate the named documents into
// --out, optionally committing to the --registry database.
func runMigrate(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("at least one source document is required")
	}

	outDir := cmd.String("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := storage.NewFS(outDir)
	if err != nil {
		return fmt.Errorf("init output storage: %w", err)
	}

	var reg registry.AgentRegistry
	if !cmd.Bool("no-commit") {
		db, err := registry.Open(cmd.String("registry"))
		if err != nil {
			return fmt.Errorf("open registry: %w", err)
		}
		defer db.Close()
		reg = db
	}

	catalog := &derive.Catalog{}
	if f := cmd.String("catalog"); f != "" {
		catalog, err = derive.LoadCatalog(f)
		if err != nil {
			return fmt.Errorf("load skill catalog: %w", err)
		}
	}
	table := derive.DefaultDecisionTable()
	if f := cmd.String("roles"); f != "" {
		table, err = derive.LoadDecisionTable(f)
		if err != nil {
			return fmt.Errorf("load decision table: %w", err)
		}
	}

	rules, err := classify.NewRuleset(classify.DefaultMarkerSets(), nil)
	if err != nil {
		return fmt.Errorf("build ruleset: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	eng, err := migrate.NewEngine(migrate.Options{
		Rules:       rules,
		Deriver:     derive.New(table, catalog, ""),
		Output:      out,
		Registry:    reg,
		Logger:      logger,
		KeepSuspect: cmd.Bool("keep-suspect"),
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	docs := make([]migrate.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, migrate.Document{Path: filepath.ToSlash(p), Data: data})
	}

	outcomes := eng.MigrateAll(ctx, docs, int(cmd.Int("parallel")))

	failed := 0
	for _, oc := range outcomes {
		printOutcome(oc)
		if oc.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(outcomes))
	}
	return nil
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

func printOutcome(oc migrate.Outcome) {
	if oc.Err != nil {
		failColor.Printf("FAIL  %s\n", oc.Path)
		fmt.Printf("      %v\n", oc.Err)
		if oc.Report != nil && oc.Report.Suspect {
			warnColor.Printf("      artifacts kept for inspection in %s\n", oc.Report.Dir)
		}
		return
	}

	r := oc.Report
	okColor.Printf("OK    %s", oc.Path)
	dimColor.Printf("  (run %s)\n", r.RunID)
	fmt.Printf("      agent:  %s  role=%s domain=%s\n", r.AgentID, r.Record.Role, r.Record.Domain)

	fmt.Print("      blocks:")
	for _, cat := range models.OutputCategories {
		fmt.Printf(" %s=%d", cat, r.Counts[cat])
	}
	if n := r.Counts[models.CategoryDiscard]; n > 0 {
		dimColor.Printf(" discard=%d", n)
	}
	fmt.Println()

	if r.Stripped > 0 {
		dimColor.Printf("      stripped %d infrastructure line(s)\n", r.Stripped)
	}
	for _, w := range r.Warnings {
		warnColor.Printf("      warning: %s (block %d): %s\n", w.Code, w.BlockOrder, w.Message)
	}

	fmt.Printf("      config: prompt=%s/%s format=%s skills=%d precompiled, %d dynamic\n",
		r.Record.PrimaryPromptSet, r.Record.EndingPromptSet, r.Record.OutputFormat,
		len(r.Record.SkillsPrecompiled), len(r.Record.SkillsDynamic))

	v := r.Verification
	dimColor.Printf("      verify: source=%dB artifacts=%dB discarded=%dB stripped=%dB\n",
		v.SourceBytes, v.ArtifactBytes, v.DiscardBytes, v.StrippedBytes)

	if r.Committed {
		fmt.Println("      committed to registry")
	} else {
		dimColor.Println("      not committed (no registry)")
	}
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "dagaz",
		Usage: "Migrate monolithic prompt documents into category artifacts with a derived configuration registry",
		Commands: []*cli.Command{
			{
				Name:      "migrate",
				Usage:     "Migrate one or more source documents",
				ArgsUsage: "FILE [FILE...]",
				Action:    runMigrate,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output directory for emitted artifacts",
						Value: "./agents",
					},
					&cli.StringFlag{
						Name:  "registry",
						Usage: "SQLite registry path",
						Value: "./dagaz.db",
					},
					&cli.StringFlag{
						Name:  "catalog",
						Usage: "Skill catalog YAML (empty for none)",
					},
					&cli.StringFlag{
						Name:  "roles",
						Usage: "Role decision table YAML (empty for built-in)",
					},
					&cli.IntFlag{
						Name:  "parallel",
						Usage: "Max concurrent documents",
						Value: 4,
					},
					&cli.BoolFlag{
						Name:  "no-commit",
						Usage: "Skip the registry commit stage",
					},
					&cli.BoolFlag{
						Name:  "keep-suspect",
						Usage: "Keep artifacts of failed verifications for inspection",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server with source-tree watching",
				Action: runServe,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
