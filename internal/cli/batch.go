package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/HartBrook/keyfit/internal/config"
	"github.com/HartBrook/keyfit/internal/optimize"
	"github.com/HartBrook/keyfit/internal/pipeline"
)

type batchOptions struct {
	runnerOptions
	targets string
	outDir  string
	inPlace bool
}

// NewBatchCmd creates the batch command.
func NewBatchCmd(a *app) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <file>...",
		Short: "Optimize many documents against the same targets",
		Long: `Optimizes several documents concurrently against one target file.

Each result is written to --out-dir under the source file's name, or back over
the source with --in-place. Documents that fail (for example, empty ones) are
reported and skipped; the rest are still written.`,
		Example: `  keyfit batch posts/*.md -t engine-oil --out-dir optimized/
  keyfit batch posts/*.md -t engine-oil --in-place --concurrency 8`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.targets, "targets", "t", "", "Target file, or a name under ~/.config/keyfit/targets")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Directory for optimized files")
	cmd.Flags().BoolVar(&opts.inPlace, "in-place", false, "Overwrite each source file")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Documents optimized at once (default from config)")
	addRunnerFlags(cmd.Flags(), &opts.runnerOptions)

	return cmd
}

func runBatch(cmd *cobra.Command, a *app, opts *batchOptions, args []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if (opts.outDir == "") == !opts.inPlace {
		return fmt.Errorf("pass exactly one of --out-dir or --in-place")
	}

	spec, err := a.loadTargets(opts.targets)
	if err != nil {
		return err
	}

	srcs := make([]pipeline.Source, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		srcs = append(srcs, pipeline.Source{Name: path, Text: string(data)})
	}
	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, config.DefaultDirMode); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if a.verbose {
		opts.progress = progressPrinter(cmd.ErrOrStderr(), true)
	}
	session, err := a.buildRunner(ctx, &opts.runnerOptions)
	if err != nil {
		return err
	}
	defer session.close()

	fmt.Fprintf(w, "Optimizing %d documents for %s\n\n", len(srcs), info(keywordLabel(spec)))
	start := time.Now()
	outcomes, err := session.RunAll(ctx, srcs, spec)
	if err != nil {
		return err
	}

	var converged, partial, failed int
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			printError(w, "%s: %v", out.Source, out.Err)
			continue
		}

		dest := out.Source
		if opts.outDir != "" {
			dest = filepath.Join(opts.outDir, filepath.Base(out.Source))
		}
		if err := os.WriteFile(dest, []byte(out.Result.Text), config.DefaultFileMode); err != nil {
			failed++
			printError(w, "%s: failed to write %s: %v", out.Source, dest, err)
			continue
		}

		res := out.Result
		detail := fmt.Sprintf("%d chars, %d iterations", res.Analysis.CharCount, res.Iterations)
		if out.Cached {
			detail += ", cached"
		}
		if res.Status == optimize.StatusConverged {
			converged++
			printSuccess(w, "%s %s", out.Source, dim("("+detail+")"))
		} else {
			partial++
			printWarning(w, "%s %s", out.Source, dim(fmt.Sprintf("(%s, %s)", res.Status, detail)))
			for _, issue := range res.Unsatisfied {
				fmt.Fprintf(w, "    %s\n", dim(issue))
			}
		}
		for _, v := range res.CeilingViolations {
			fmt.Fprintf(w, "    %s %s\n", warningIcon, v)
		}
	}

	fmt.Fprintln(w)
	printInfo(w, "Converged", fmt.Sprintf("%d", converged))
	if partial > 0 {
		printInfo(w, "Partial", fmt.Sprintf("%d", partial))
	}
	if failed > 0 {
		printInfo(w, "Failed", fmt.Sprintf("%d", failed))
	}
	if usage := session.oracleUsage(); usage != "" {
		printInfo(w, "Oracle", usage)
	}
	printInfo(w, "Elapsed", time.Since(start).Round(time.Millisecond).String())

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(srcs))
	}
	return nil
}
