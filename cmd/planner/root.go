package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

// version is set via -ldflags at build time.
var version = "(devel)"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Generate and track learning plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PLAN_SQLITE_PATH)")
	root.PersistentFlags().String("catalog", "", "Catalog directory (overrides PLAN_CATALOG_PATH)")

	root.AddCommand(
		newSubjectsCmd(),
		newExamsCmd(),
		newGenerateCmd(),
		newListCmd(),
		newShowCmd(),
		newCompleteCmd(),
		newExportCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "planner", version)
			},
		},
	)
	return root
}

// env is what a command needs to reach the catalog and the plan store.
type env struct {
	repo    *planner.SQLiteRepository
	service *planner.Service
}

func (e *env) Close() error {
	return e.repo.Close()
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then PLAN_SQLITE_PATH, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, os.MkdirAll(filepath.Dir(p), 0o755)
	}
	return planner.DefaultSQLitePath()
}

func resolveCatalogPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		return p
	}
	if p := os.Getenv("PLAN_CATALOG_PATH"); p != "" {
		return p
	}
	return "./catalog"
}

func openEnv(cmd *cobra.Command) (*env, error) {
	loader, err := catalog.NewLoader(resolveCatalogPath(cmd))
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	repo, err := planner.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	svc := planner.NewService(planner.ServiceConfig{
		Engine:     plan.NewEngine(plan.EngineConfig{Policy: plan.DifficultyPolicy{}}),
		Catalog:    loader,
		Exams:      loader,
		Repository: repo,
	})
	return &env{repo: repo, service: svc}, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Calendar dates
// are read in local time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
