package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/config"
	"github.com/HartBrook/keyfit/internal/optimize"
	"github.com/HartBrook/keyfit/internal/pipeline"
)

type optimizeOptions struct {
	runnerOptions
	targets  string
	repo     string
	output   string
	showDiff bool
	quiet    bool
}

// NewOptimizeCmd creates the optimize command.
func NewOptimizeCmd(a *app) *cobra.Command {
	opts := &optimizeOptions{}

	cmd := &cobra.Command{
		Use:   "optimize [file]",
		Short: "Rewrite a document until it fits its targets",
		Long: `Rewrites one document until every target unit and the character count
fall inside their ranges, or until no further progress is possible.

The document is read from a file, from stdin when the file is omitted or "-",
or from a GitHub repository with --repo. The optimized text goes to stdout
unless -o is given; the report goes to stderr.

A run that does not converge still writes the best text it found and exits
successfully; the report lists what remains unsatisfied.`,
		Example: `  keyfit optimize draft.md -t engine-oil          # Targets from ~/.config/keyfit/targets
  keyfit optimize draft.md -t targets.yaml -o out.md
  cat draft.md | keyfit optimize -t engine-oil --diff
  keyfit optimize --repo acme/blog/posts/oil.md@main -t engine-oil
  keyfit optimize draft.md -t engine-oil --deterministic`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.targets, "targets", "t", "", "Target file, or a name under ~/.config/keyfit/targets")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "Fetch the document from GitHub (owner/repo/path[@branch] or a blob URL)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write optimized text to file instead of stdout")
	cmd.Flags().BoolVar(&opts.showDiff, "diff", false, "Show before/after diff")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print the optimized text")
	addRunnerFlags(cmd.Flags(), &opts.runnerOptions)

	return cmd
}

func runOptimize(cmd *cobra.Command, a *app, opts *optimizeOptions, args []string) error {
	ctx := cmd.Context()
	report := cmd.ErrOrStderr()
	if opts.quiet {
		report = io.Discard
	}

	spec, err := a.loadTargets(opts.targets)
	if err != nil {
		return err
	}
	src, err := readSource(ctx, args, opts.repo, cmd.InOrStdin())
	if err != nil {
		return err
	}

	if a.verbose && !opts.quiet {
		opts.progress = progressPrinter(report, false)
	}
	session, err := a.buildRunner(ctx, &opts.runnerOptions)
	if err != nil {
		return err
	}
	defer session.close()

	out, err := session.Run(ctx, src, spec)
	if err != nil {
		return err
	}
	if out.Err != nil {
		return out.Err
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(out.Result.Text), config.DefaultFileMode); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), out.Result.Text)
		if !strings.HasSuffix(out.Result.Text, "\n") {
			fmt.Fprintln(cmd.OutOrStdout())
		}
	}

	fmt.Fprintln(report)
	fmt.Fprintf(report, "Optimizing %s for %s\n", info(src.Name), info(keywordLabel(spec)))
	displayOptimizationResult(report, out, analyze.Measure(src.Text, spec).CharCount)
	if usage := session.oracleUsage(); usage != "" {
		printInfo(report, "Oracle", usage)
	}
	if opts.showDiff {
		displayDiff(report, src.Text, out.Result.Text)
	}
	if opts.output != "" {
		fmt.Fprintln(report)
		printSuccess(report, "Wrote %s", opts.output)
	}
	return nil
}

func keywordLabel(spec *analyze.TargetSpec) string {
	if spec.Keyword != "" {
		return spec.Keyword
	}
	return "targets"
}

// displayOptimizationResult shows the optimization results.
func displayOptimizationResult(w io.Writer, out *pipeline.Outcome, before int) {
	res := out.Result
	fmt.Fprintln(w)

	switch res.Status {
	case optimize.StatusConverged:
		printSuccess(w, "Converged after %d iterations", res.Iterations)
	case optimize.StatusStuck:
		printWarning(w, "Stopped after %d iterations: no edit made progress", res.Iterations)
	case optimize.StatusBudgetExhausted:
		printWarning(w, "Iteration budget exhausted after %d iterations", res.Iterations)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s: %d chars\n", dim("Before"), before)
	fmt.Fprintf(w, "  %s: %d chars (target %s)\n", dim("After"), res.Analysis.CharCount, res.Analysis.CharRange)
	displayUnitTable(w, res.Analysis)

	if len(res.Unsatisfied) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s:\n", dim("Unsatisfied"))
		for _, issue := range res.Unsatisfied {
			fmt.Fprintf(w, "    %s %s\n", warningIcon, issue)
		}
	}
	if len(res.CeilingViolations) > 0 {
		fmt.Fprintln(w)
		for _, v := range res.CeilingViolations {
			printWarning(w, "Hard limit exceeded: %s", v)
		}
	}

	if out.Cached {
		fmt.Fprintf(w, "\n  %s\n", dim("(from cache)"))
	}
}

// displayUnitTable prints one line per unit with its count and window.
func displayUnitTable(w io.Writer, res *analyze.Result) {
	if len(res.Units) == 0 {
		return
	}
	width := 0
	for _, uc := range res.Units {
		width = max(width, len([]rune(uc.Unit.Text())))
	}

	fmt.Fprintln(w)
	for _, uc := range res.Units {
		icon := successIcon
		if !uc.Valid {
			icon = errorIcon
		}
		pad := strings.Repeat(" ", width-len([]rune(uc.Unit.Text())))
		fmt.Fprintf(w, "  %s %s%s  %3d  %s\n", icon, uc.Unit.Text(), pad, uc.Count,
			dim(fmt.Sprintf("%s %s", uc.Unit.Kind(), uc.Range)))
	}
}

// displayDiff shows a simple diff between original and optimized content.
func displayDiff(w io.Writer, original, optimized string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, dim("--- original"))
	fmt.Fprintln(w, dim("+++ optimized"))
	fmt.Fprintln(w)

	origLines := strings.Split(original, "\n")
	optLines := strings.Split(optimized, "\n")

	// Show first differences (limited output for readability)
	shown := 0
	maxDiff := 20

	maxLen := max(len(origLines), len(optLines))

	for i := 0; i < maxLen && shown < maxDiff; i++ {
		origLine := ""
		optLine := ""
		if i < len(origLines) {
			origLine = origLines[i]
		}
		if i < len(optLines) {
			optLine = optLines[i]
		}

		if origLine != optLine {
			if i < len(origLines) {
				fmt.Fprintf(w, "%s %s\n", danger("-"), origLine)
			}
			if i < len(optLines) {
				fmt.Fprintf(w, "%s %s\n", success("+"), optLine)
			}
			shown++
		}
	}

	if shown >= maxDiff {
		fmt.Fprintf(w, "\n%s\n", dim("(diff truncated, showing first 20 changes)"))
	}
}
