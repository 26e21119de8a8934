package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shivasurya/code-pathfinder/sast-engine/analytics"
	"github.com/shivasurya/code-pathfinder/sast-engine/config"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/analysis/taint"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/query"
	"github.com/shivasurya/code-pathfinder/sast-engine/output"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a Solidity-like project for reentrancy and unresolved references",
	Long: `Analyze parses every source file under --project into a shared syntax tree,
builds its inheritance-aware call graph, and runs the built-in checks-effects-
interactions queries (direct and interprocedural) plus the unresolved-call and
unresolved-modifier diagnostics.

Examples:
  # Analyze a project, text output to stdout
  pathfinder analyze --project /path/to/contracts

  # SARIF for CI, failing the build on high/critical findings
  pathfinder analyze --project . --output sarif --output-file results.sarif --fail-on critical,high`,
	RunE: func(cmd *cobra.Command, args []string) error {
		startTime := time.Now()
		projectPath, _ := cmd.Flags().GetString("project")
		debug, _ := cmd.Flags().GetBool("debug")
		failOnStr, _ := cmd.Flags().GetString("fail-on")
		outputFormat, _ := cmd.Flags().GetString("output")
		outputFile, _ := cmd.Flags().GetString("output-file")
		cacheSize, _ := cmd.Flags().GetInt("cache-size")

		analytics.ReportEventWithProperties(analytics.AnalyzeStarted, map[string]interface{}{
			"output_format": outputFormat,
		})

		if projectPath == "" {
			analytics.ReportEventWithProperties(analytics.AnalyzeFailed, map[string]interface{}{
				"error_type": "validation",
			})
			return fmt.Errorf("--project flag is required")
		}

		verbosity := output.VerbosityDefault
		if debug {
			verbosity = output.VerbosityDebug
		} else if verboseFlag {
			verbosity = output.VerbosityVerbose
		}
		logger := output.NewLogger(verbosity)

		noBanner, _ := cmd.Flags().GetBool("no-banner")
		if output.ShouldShowBanner(logger.IsTTY(), noBanner) {
			output.PrintBanner(logger.GetWriter(), Version, output.DefaultBannerOptions())
		} else if logger.IsTTY() && !noBanner {
			fmt.Fprintln(logger.GetWriter(), output.GetCompactBanner(Version))
		}

		failOn := output.ParseFailOn(failOnStr)
		if len(failOn) > 0 {
			if err := output.ValidateSeverities(failOn); err != nil {
				return err
			}
		}

		if outputFormat != "" && outputFormat != "text" && outputFormat != "json" && outputFormat != "sarif" {
			return fmt.Errorf("--output must be 'text', 'json', or 'sarif'")
		}
		if outputFormat == "" {
			outputFormat = "text"
		}

		absProjectPath, err := filepath.Abs(projectPath)
		if err != nil {
			return fmt.Errorf("failed to resolve project path: %w", err)
		}
		projectPath = absProjectPath

		logger.StartProgress("Parsing source files", -1)
		tree, diagnostics, err := parseProject(projectPath, logger)
		logger.FinishProgress()
		if err != nil {
			analytics.ReportEventWithProperties(analytics.AnalyzeFailed, map[string]interface{}{
				"error_type": "parse",
			})
			return err
		}
		if len(tree.Files()) == 0 {
			analytics.ReportEventWithProperties(analytics.AnalyzeFailed, map[string]interface{}{
				"error_type": "empty_project",
			})
			return fmt.Errorf("no source files found in project")
		}
		logger.Statistic("Parsed %d file(s), %d parse diagnostic(s)", len(tree.Files()), len(diagnostics))
		for _, d := range diagnostics {
			logger.Debug("%s", d)
		}

		logger.StartProgress("Building call graph", -1)
		runtime, err := query.NewRuntime(tree, cacheSize)
		logger.FinishProgress()
		if err != nil {
			analytics.ReportEventWithProperties(analytics.AnalyzeFailed, map[string]interface{}{
				"error_type": "callgraph_build",
			})
			return fmt.Errorf("failed to build call graph: %w", err)
		}
		logger.Statistic("Call graph built: %d function(s)", len(runtime.Functions()))

		cfg, err := config.Load(filepath.Join(projectPath, "pathfinder.yaml"))
		if err != nil {
			return fmt.Errorf("failed to load pathfinder.yaml: %w", err)
		}
		cfg.Apply()

		logger.Progress("Running queries...")
		var tuples []query.Tuple
		tuples = append(tuples, query.CEIViolationsDirect(runtime)...)
		tuples = append(tuples, query.CEIViolationsInterprocedural(runtime)...)
		tuples = append(tuples, runtime.UnresolvedCalls()...)
		tuples = append(tuples, runtime.UnresolvedModifiers()...)
		tuples = append(tuples, taintFlowTuples(runtime, cfg, logger)...)
		tuples = query.Dedupe(tuples)
		query.Sort(tuples)

		uniqueRules := map[string]bool{}
		for _, t := range tuples {
			if t.Rule.ID != "" {
				uniqueRules[t.Rule.ID] = true
			}
		}
		summary := output.BuildSummary(tuples, len(uniqueRules))

		var outputWriter *os.File
		if outputFile != "" {
			outputWriter, err = os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer outputWriter.Close()
		}

		opts := &output.OutputOptions{ProjectRoot: projectPath, ContextLines: 3, Verbosity: verbosity}
		switch outputFormat {
		case "text":
			var formatter *output.TextFormatter
			if outputWriter != nil {
				formatter = output.NewTextFormatterWithWriter(outputWriter, opts, logger)
			} else {
				formatter = output.NewTextFormatter(opts, logger)
			}
			if err := formatter.Format(tuples, summary); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
		case "json":
			scanInfo := output.ScanInfo{
				Target:        projectPath,
				Version:       Version,
				RulesExecuted: len(uniqueRules),
				Duration:      time.Since(startTime),
			}
			var formatter *output.JSONFormatter
			if outputWriter != nil {
				formatter = output.NewJSONFormatterWithWriter(outputWriter, opts)
			} else {
				formatter = output.NewJSONFormatter(opts)
			}
			if err := formatter.Format(tuples, summary, scanInfo); err != nil {
				return fmt.Errorf("failed to format JSON output: %w", err)
			}
		case "sarif":
			scanInfo := output.ScanInfo{
				Target:        projectPath,
				Version:       Version,
				RulesExecuted: len(uniqueRules),
				Duration:      time.Since(startTime),
			}
			var formatter *output.SARIFFormatter
			if outputWriter != nil {
				formatter = output.NewSARIFFormatterWithWriter(outputWriter, opts)
			} else {
				formatter = output.NewSARIFFormatter(opts)
			}
			if err := formatter.Format(tuples, scanInfo); err != nil {
				return fmt.Errorf("failed to format SARIF output: %w", err)
			}
		}

		if outputWriter != nil {
			logger.Progress("Wrote results to %s", outputFile)
		}

		exitCode := output.DetermineExitCode(tuples, failOn, false)

		analytics.ReportEventWithProperties(analytics.AnalyzeCompleted, map[string]interface{}{
			"duration_ms":    time.Since(startTime).Milliseconds(),
			"files_scanned":  len(tree.Files()),
			"functions":      len(runtime.Functions()),
			"findings_count": len(uniqueRules),
			"output_format":  outputFormat,
			"exit_code":      int(exitCode),
		})

		if exitCode != output.ExitCodeSuccess {
			os.Exit(int(exitCode))
		}

		return nil
	},
}

// taintFlowTuples runs the configurable taint engine (spec.md §4.6) over
// every function's SSA form using cfg's source/sink/sanitizer additions on
// top of the built-in predicate table, reporting each confirmed flow as a
// diagnostic tuple. A truncated search (engineerr.Budget) is logged rather
// than dropped silently.
func taintFlowTuples(r *query.Runtime, cfg *config.Config, logger *output.Logger) []query.Tuple {
	taintCfg := cfg.TaintConfig(r.Build.Registry, r.StateVars)
	engine := taint.NewEngine(taintCfg, r.Build.CallGraph, r.SSAFunctions())
	engine.Budget = cfg.Options.FixpointBudget

	flows, err := engine.Flows(r.Tree.AllNodes())
	if err != nil {
		logger.Warning("%v", err)
	}

	var out []query.Tuple
	for _, f := range flows {
		out = append(out, query.Tuple{
			Node:    f.Sink,
			Message: "tainted data flows from a configured source to a configured sink",
			Context: []*graph.Node{f.Source},
			Rule:    query.Rule{ID: "tainted-flow", Name: "Tainted data flow", Severity: query.SeverityMedium},
		})
	}
	return out
}

// parseProject walks projectPath for .sol source files and parses each into
// one shared InMemoryTree, accumulating parse diagnostics rather than
// aborting on the first malformed file (spec.md §7).
func parseProject(projectPath string, logger *output.Logger) (*graph.InMemoryTree, []string, error) {
	tree := graph.NewInMemoryTree()
	var diagnostics []string

	err := filepath.Walk(projectPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "node_modules" || info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".sol") {
			return nil
		}
		src, readErr := os.ReadFile(path)
		if readErr != nil {
			logger.Warning("failed to read %s: %v", path, readErr)
			return nil
		}
		rel, relErr := filepath.Rel(projectPath, path)
		if relErr != nil {
			rel = path
		}
		p := graph.NewParser(rel, string(src))
		p.ParseSourceUnit(tree)
		diagnostics = append(diagnostics, p.Diagnostics...)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk project directory: %w", err)
	}

	return tree, diagnostics, nil
}

func init() {
	analyzeCmd.Flags().StringP("project", "p", "", "Path to project directory to analyze (required)")
	analyzeCmd.Flags().StringP("output", "o", "text", "Output format: text, json, or sarif (default: text)")
	analyzeCmd.Flags().StringP("output-file", "f", "", "Write output to file instead of stdout")
	analyzeCmd.Flags().Bool("debug", false, "Show detailed debug diagnostics")
	analyzeCmd.Flags().String("fail-on", "", "Fail with exit code 1 if findings match severities (e.g., critical,high)")
	analyzeCmd.Flags().Int("cache-size", 256, "Per-function analysis cache size (CFG/dominance/SSA results)")
	rootCmd.AddCommand(analyzeCmd)
}
