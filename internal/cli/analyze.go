package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/HartBrook/keyfit/internal/analyze"
)

type analyzeOptions struct {
	targets string
	repo    string
	jsonOut bool
	check   bool
}

type unitReport struct {
	Unit  string        `json:"unit"`
	Kind  string        `json:"kind"`
	Count int           `json:"count"`
	Range analyze.Range `json:"range"`
	Valid bool          `json:"valid"`
}

type analysisReport struct {
	Source         string        `json:"source"`
	Keyword        string        `json:"keyword,omitempty"`
	CharCount      int           `json:"char_count"`
	CharRange      analyze.Range `json:"char_range"`
	ValidCharCount bool          `json:"valid_char_count"`
	Units          []unitReport  `json:"units"`
	FullyOptimized bool          `json:"fully_optimized"`
	Violations     []string      `json:"violations,omitempty"`
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Count target units and characters without changing anything",
		Long: `Measures a document against its targets: the character count and every
unit's occurrence count, each checked against its range.

Use --check in scripts to exit non-zero when any target is missed.`,
		Example: `  keyfit analyze draft.md -t engine-oil
  keyfit analyze draft.md -t engine-oil --json
  keyfit analyze out.md -t engine-oil --check`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.targets, "targets", "t", "", "Target file, or a name under ~/.config/keyfit/targets")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "Fetch the document from GitHub (owner/repo/path[@branch] or a blob URL)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the analysis as JSON")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Exit with an error unless every target is met")

	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, opts *analyzeOptions, args []string) error {
	spec, err := a.loadTargets(opts.targets)
	if err != nil {
		return err
	}
	src, err := readSource(cmd.Context(), args, opts.repo, cmd.InOrStdin())
	if err != nil {
		return err
	}

	res, err := analyze.Analyze(src.Text, spec)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		data, err := json.MarshalIndent(buildAnalysisReport(src.Name, spec, res), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode analysis: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		displayAnalysis(cmd.OutOrStdout(), src.Name, spec, res)
	}

	if opts.check && !res.FullyOptimized {
		return fmt.Errorf("%s misses %d of its targets", src.Name, len(res.Violations()))
	}
	return nil
}

func buildAnalysisReport(source string, spec *analyze.TargetSpec, res *analyze.Result) analysisReport {
	r := analysisReport{
		Source:         source,
		Keyword:        spec.Keyword,
		CharCount:      res.CharCount,
		CharRange:      res.CharRange,
		ValidCharCount: res.ValidCharCount,
		Units:          make([]unitReport, 0, len(res.Units)),
		FullyOptimized: res.FullyOptimized,
		Violations:     res.Violations(),
	}
	for _, uc := range res.Units {
		r.Units = append(r.Units, unitReport{
			Unit:  uc.Unit.Text(),
			Kind:  uc.Unit.Kind().String(),
			Count: uc.Count,
			Range: uc.Range,
			Valid: uc.Valid,
		})
	}
	return r
}

func displayAnalysis(w io.Writer, source string, spec *analyze.TargetSpec, res *analyze.Result) {
	fmt.Fprintf(w, "Analysis of %s for %s\n", info(source), info(keywordLabel(spec)))
	fmt.Fprintln(w)

	icon := successIcon
	if !res.ValidCharCount {
		icon = errorIcon
	}
	fmt.Fprintf(w, "  %s %s: %d %s\n", icon, dim("Characters"), res.CharCount, dim(res.CharRange.String()))
	displayUnitTable(w, res)

	fmt.Fprintln(w)
	if res.FullyOptimized {
		printSuccess(w, "All targets met")
		return
	}
	for _, v := range res.Violations() {
		printWarning(w, "%s", v)
	}
}
