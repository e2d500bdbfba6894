package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"c4f/cli/internal/change"
	"c4f/cli/internal/config"
	"c4f/cli/internal/erruser"
	"c4f/cli/internal/git"
	"c4f/cli/internal/ollama"
	"c4f/cli/internal/pipeline"
	"c4f/cli/internal/ui"
	"c4f/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI. It is exported for testing so that
// main.go can meet per-file coverage requirements.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		fmt.Fprintln(os.Stderr, err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(os.Stderr, "Details: %v\n", u)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "c4f",
		Short:   "Generate conventional commit messages with a local model",
		Version: version.String(),
		RunE:    runCommit,
	}
	cmd.Flags().StringP("model", "m", "", "Ollama model to use (overrides config)")
	cmd.Flags().String("path", "", "Repository path (default: current directory)")
	cmd.Flags().Int("threshold", 0, "Changed-line count selecting the comprehensive prompt (overrides config)")
	cmd.Flags().Int("attempts", 0, "Generation attempts before composing the fallback message (overrides config)")
	cmd.Flags().Duration("timeout", time.Duration(0), "Per-attempt generation timeout (overrides config)")
	cmd.Flags().Bool("force-brackets", false, "Require a (scope) in the commit subject")
	cmd.Flags().BoolP("yes", "y", false, "Commit without asking for confirmation")
	cmd.Flags().Bool("dry-run", false, "Print the message without staging or committing")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")
	cmd.AddCommand(newCheckCmd())
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}

// overridesFromFlags maps changed flags onto config overrides. Unchanged
// flags leave the config value alone.
func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	o := &config.Overrides{}
	changed := false
	if f := cmd.Flags().Lookup("model"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("model")
		o.Model = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("threshold"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt("threshold")
		o.PromptThreshold = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("attempts"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt("attempts")
		o.Attempts = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetDuration("timeout")
		o.FallbackTimeout = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("force-brackets"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("force-brackets")
		o.ForceBrackets = &v
		changed = true
	}
	if !changed {
		return nil
	}
	return o
}

// repoDir resolves the directory to discover the repository from: --path
// when given, otherwise the current directory.
func repoDir(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("path"); p != "" {
		return p, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", erruser.New("Could not determine current directory.", err)
	}
	return cwd, nil
}

func runCommit(cmd *cobra.Command, args []string) error {
	dir, err := repoDir(cmd)
	if err != nil {
		return err
	}
	repo, err := git.Open(dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.LoadOptions{RepoRoot: repo.Root(), Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}

	// Progress goes to stderr so the message itself can be piped from stdout.
	printer := ui.New(os.Stdout, os.Stdin)
	var reporter pipeline.Reporter = ui.New(os.Stderr, os.Stdin)
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		reporter = pipeline.NopReporter{}
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.Options{
		Config:   cfg,
		Repo:     repo,
		Backend:  ollama.NewClient(cfg.OllamaBaseURL, nil),
		Reporter: reporter,
	})
	if err != nil {
		if errors.Is(err, change.ErrNoChanges) {
			fmt.Fprintln(os.Stderr, "Nothing to commit; the working tree is clean.")
			return errExit(1)
		}
		if errors.Is(err, ollama.ErrUnreachable) {
			fmt.Fprintf(os.Stderr, "Ollama unreachable at %s. Is the server running? For local: ollama serve.\n", cfg.OllamaBaseURL)
			fmt.Fprintf(os.Stderr, "Details: %v\n", err)
			return errExit(2)
		}
		return err
	}

	printer.Message(res.Message.Subject(), res.Message.BodyText())

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return nil
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := printer.Confirm("Commit with this message?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return errExit(1)
		}
	}

	// Nothing staged means the changeset came from the working tree; stage
	// it so the commit matches the message.
	staged := false
	for _, f := range res.Files {
		if f.File.Staged {
			staged = true
			break
		}
	}
	if !staged {
		if err := repo.StageAll(cmd.Context()); err != nil {
			return err
		}
	}

	if err := repo.Commit(cmd.Context(), res.Message.Subject(), res.Message.BodyText()); err != nil {
		return err
	}
	reporter.Report("info", "committed: "+res.Message.Subject())
	return nil
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify environment (Ollama reachable, model present)",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	dir, err := repoDir(cmd.Root())
	if err != nil {
		return err
	}
	repoRoot := ""
	if r, e := git.RepoRoot(dir); e == nil {
		repoRoot = r
	}
	cfg, err := config.Load(config.LoadOptions{RepoRoot: repoRoot})
	if err != nil {
		return err
	}
	client := ollama.NewClient(cfg.OllamaBaseURL, nil)
	result, err := client.Check(cmd.Context(), cfg.Model)
	if err != nil {
		if errors.Is(err, ollama.ErrUnreachable) {
			fmt.Fprintf(os.Stderr, "Ollama unreachable at %s. Is the server running? For local: ollama serve.\n", cfg.OllamaBaseURL)
			fmt.Fprintf(os.Stderr, "Details: %v\n", err)
			return errExit(2)
		}
		fmt.Fprintln(os.Stderr, err.Error())
		return errExit(1)
	}
	if !result.ModelPresent {
		fmt.Fprintf(os.Stderr, "Model %q not found. Pull it with: ollama pull %s\n", cfg.Model, cfg.Model)
		return errExit(1)
	}
	fmt.Fprintln(os.Stdout, "Ollama OK")
	fmt.Fprintf(os.Stdout, "Model: %s\n", cfg.Model)
	return nil
}
