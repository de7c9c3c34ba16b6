// Package cli implements the keyfit command-line interface.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HartBrook/keyfit/internal/config"
	"github.com/HartBrook/keyfit/internal/errors"
	"github.com/HartBrook/keyfit/internal/logging"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Output helpers.
	successIcon = color.New(color.FgGreen).Sprint("✓")
	warningIcon = color.New(color.FgYellow).Sprint("⚠")
	errorIcon   = color.New(color.FgRed).Sprint("✗")

	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	danger  = color.New(color.FgRed).SprintFunc()
	info    = color.New(color.FgCyan).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// app carries state shared by every subcommand. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	paths  *config.Paths
	logger *zap.Logger
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "keyfit",
		Short: "Rewrite generated prose to hit keyword and length targets",
		Long: `Keyfit rewrites a block of generated prose so that each target unit
appears a bounded number of times and the text stays inside a character range.

It edits sentence by sentence: deleting filler, swapping synonyms, asking a
rewrite oracle to drop a unit from one sentence, or inserting template
sentences when the text runs short. Headings, lists, code and the trailing
reference section are never touched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ~/.config/keyfit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Show debug logs and progress")

	rootCmd.AddCommand(NewOptimizeCmd(a))
	rootCmd.AddCommand(NewAnalyzeCmd(a))
	rootCmd.AddCommand(NewBatchCmd(a))
	rootCmd.AddCommand(NewHistoryCmd(a))
	rootCmd.AddCommand(NewInfoCmd(a))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// setup loads config and builds the logger. An explicit --config must
// exist; the default location may be absent.
func (a *app) setup() error {
	a.paths = config.NewPaths()

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.LoadOrDefault(a.paths.ConfigFile)
	}
	if err != nil {
		return err
	}

	logger, err := logging.New(a.cfg.Logging, a.verbose)
	if err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, "failed to build logger", "Check logging.level and logging.format", err)
	}
	a.logger = logger
	return nil
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keyfit %s\n", Version)
		},
	}
}

// Execute runs the CLI. An interrupt cancels the running optimization.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorIcon, err.Error())
		if hint := hintFor(err); hint != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", dim(hint))
		}
		return err
	}
	return nil
}

// hintFor returns the hint of the outermost KeyfitError in err's chain.
func hintFor(err error) string {
	var ke *errors.KeyfitError
	if stderrors.As(err, &ke) {
		return ke.Hint
	}
	return ""
}

// printSuccess prints a success message.
func printSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", successIcon, fmt.Sprintf(format, args...))
}

// printWarning prints a warning message.
func printWarning(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", warningIcon, fmt.Sprintf(format, args...))
}

// printError prints an error message.
func printError(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", errorIcon, fmt.Sprintf(format, args...))
}

// printInfo prints an info line.
func printInfo(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s: %s\n", dim(label), value)
}
