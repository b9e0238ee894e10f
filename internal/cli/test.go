package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/leadflow/internal/harness"
)

// TestCmdOptions holds flags for the test command.
type TestCmdOptions struct {
	*RootOptions
	Filter    string // scenario filter (glob pattern on the file name)
	Sequences string // base dir for sequence paths (default: scenario file dir)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestCmdOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML scenario files against an in-memory engine with scripted
capability failures and a deterministic clock, checking each
scenario's expectations.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  leadflow test ./scenarios
  leadflow test ./scenarios --filter "qualification_*"
  leadflow test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Sequences, "sequences", "", "resolve sequence paths against this directory instead of the scenario file's")

	return cmd
}

func runTests(opts *TestCmdOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "find scenarios", err)
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	if len(files) == 0 {
		if formatter.Format == "json" {
			return formatter.Success(TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		scenResult := runScenarioFile(file, opts, formatter)
		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintf(formatter.Writer, "%d passed, %d failed, %d total\n",
			result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenarioFile executes a single scenario and reports its outcome.
func runScenarioFile(file string, opts *TestCmdOptions, formatter *OutputFormatter) ScenarioResult {
	var (
		sc  *harness.Scenario
		err error
	)
	if opts.Sequences != "" {
		sc, err = harness.LoadScenarioWithBasePath(file, opts.Sequences)
	} else {
		sc, err = harness.LoadScenario(file)
	}
	if err != nil {
		printScenarioFailure(formatter, filepath.Base(file), err.Error())
		return ScenarioResult{
			Name:   filepath.Base(file),
			Pass:   false,
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(sc)
	if err != nil {
		printScenarioFailure(formatter, sc.Name, err.Error())
		return ScenarioResult{
			Name:   sc.Name,
			Pass:   false,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	if formatter.Format != "json" {
		if result.Pass {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", sc.Name)
		} else {
			printScenarioFailure(formatter, sc.Name, strings.Join(result.Errors, "; "))
		}
	}
	return ScenarioResult{Name: sc.Name, Pass: result.Pass, Errors: result.Errors}
}

func printScenarioFailure(formatter *OutputFormatter, name, detail string) {
	if formatter.Format == "json" {
		return
	}
	fmt.Fprintf(formatter.Writer, "✗ %s\n", name)
	if detail != "" {
		fmt.Fprintf(formatter.Writer, "  %s\n", detail)
	}
}
