package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HartBrook/keyfit/internal/cache"
	"github.com/HartBrook/keyfit/internal/github"
	"github.com/HartBrook/keyfit/internal/history"
)

type infoOptions struct {
	clearCache bool
}

// NewInfoCmd creates the info command.
func NewInfoCmd(a *app) *cobra.Command {
	opts := &infoOptions{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show config, targets, cache and history state",
		Long: `Displays where keyfit reads its config and targets, which rewrite oracle
is active, and how much is stored in the result cache and run history.`,
		Example: `  keyfit info               # Status overview
  keyfit info --clear-cache # Drop every cached result`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.Context(), cmd.OutOrStdout(), a, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.clearCache, "clear-cache", false, "Remove every cached result")

	return cmd
}

func runInfo(ctx context.Context, w io.Writer, a *app, opts *infoOptions) error {
	c := cache.New(a.paths)
	if opts.clearCache {
		if err := c.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		printSuccess(w, "Cleared result cache")
		return nil
	}

	cfg := a.cfg

	fmt.Fprintln(w, "Config:")
	configFile := a.paths.ConfigFile
	if a.configPath != "" {
		configFile = a.configPath
	}
	if _, err := os.Stat(configFile); err == nil {
		printInfo(w, "File", configFile)
	} else {
		printInfo(w, "File", dim("not found, using defaults"))
	}
	oracleLine := cfg.Oracle.Provider
	if cfg.Oracle.Model != "" {
		oracleLine += " (" + cfg.Oracle.Model + ")"
	}
	printInfo(w, "Oracle", oracleLine)
	printInfo(w, "Iterations", fmt.Sprintf("%d (hard cap %d)", cfg.Optimizer.MaxIterations, cfg.Optimizer.HardCapAttempts))
	printInfo(w, "Seed", fmt.Sprintf("%d", cfg.Optimizer.Seed))
	if len(cfg.Lexicon) > 0 || len(cfg.Fillers) > 0 {
		printInfo(w, "Custom", fmt.Sprintf("%d lexicon entries, %d fillers", len(cfg.Lexicon), len(cfg.Fillers)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Targets:")
	printInfo(w, "Directory", a.paths.TargetsDir)
	if names := targetNames(a.paths.TargetsDir); len(names) > 0 {
		printInfo(w, "Available", strings.Join(names, ", "))
	} else {
		printInfo(w, "Available", dim("none"))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Cache:")
	if !cfg.Cache.IsEnabled() {
		printInfo(w, "Status", warning("disabled"))
	} else {
		keys, err := c.ListCached()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}
		printInfo(w, "Location", c.Dir())
		printInfo(w, "Entries", fmt.Sprintf("%d", len(keys)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "History:")
	if !cfg.History.IsEnabled() {
		printInfo(w, "Status", warning("disabled"))
	} else {
		printInfo(w, "Location", a.paths.HistoryDB)
		if _, err := os.Stat(a.paths.HistoryDB); err != nil {
			printInfo(w, "Runs", dim("none recorded"))
		} else if store, err := history.Open(a.paths.HistoryDB); err == nil {
			runs, err := store.Recent(ctx, 1)
			store.Close()
			if err == nil && len(runs) > 0 {
				printInfo(w, "Last run", fmt.Sprintf("%s %s", runs[0].Source, dim(runs[0].StartedAt.Local().Format("2006-01-02 15:04"))))
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "GitHub:")
	printInfo(w, "Auth", github.AuthMethod())

	return nil
}

// targetNames lists the bare names of target files in dir.
func targetNames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	return names
}
