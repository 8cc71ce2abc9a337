// ABOUTME: Test runner for RAGAS benchmarks - executes scenarios and collects results
// ABOUTME: Each scenario gets a fresh data directory and runs against the configured providers

package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/app"
	"github.com/harper/docchat/internal/config"
	"github.com/harper/docchat/internal/core"
	"github.com/harper/docchat/internal/logging"
)

// BenchmarkRunner executes RAGAS benchmark tests
type BenchmarkRunner struct {
	config  *config.Config
	logger  *log.Logger
	metrics *MetricsCalculator
	verbose bool
}

// NewBenchmarkRunner creates a new benchmark runner; cfg's data dir is replaced per scenario
func NewBenchmarkRunner(cfg *config.Config, logger *log.Logger, verbose bool) *BenchmarkRunner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &BenchmarkRunner{
		config:  cfg,
		logger:  logger,
		metrics: NewMetricsCalculator(),
		verbose: verbose,
	}
}

// RunTest executes a single benchmark scenario
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) (TestResult, error) {
	if r.verbose {
		fmt.Printf("\n========================================\n")
		fmt.Printf("RUNNING: %s\n", scenario.Name)
		fmt.Printf("========================================\n")
		fmt.Printf("Description: %s\n\n", scenario.Description)
	}

	// Fresh stores for this scenario
	tmpDir, err := os.MkdirTemp("", fmt.Sprintf("docchat_bench_%s_*", scenario.ID))
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to create test directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	cfg := *r.config
	cfg.DataDir = tmpDir
	cfg.HistoryBackend = config.BackendSQLite
	cfg.VectorBackend = config.BackendSQLite

	a, err := app.New(ctx, &cfg, r.logger)
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to create test storage: %w", err)
	}
	defer func() { _ = a.Close() }()

	if err := r.setupTest(ctx, a, scenario); err != nil {
		return TestResult{}, fmt.Errorf("setup failed: %w", err)
	}

	orchestrator, err := a.Orchestrator()
	if err != nil {
		return TestResult{}, err
	}

	var final *core.ChatResult
	for _, turn := range scenario.Turns {
		result, err := orchestrator.Chat(ctx, turn.SessionID, turn.UserMessage)
		if err != nil {
			return TestResult{}, fmt.Errorf("turn %d failed: %w", turn.TurnNumber, err)
		}
		if r.verbose {
			fmt.Printf("Turn %d [%s]\n", turn.TurnNumber, turn.SessionID)
			fmt.Printf("  User: %s\n", turn.UserMessage)
			if result.Rewritten {
				fmt.Printf("  Standalone: %s\n", result.StandaloneQuery)
			}
			fmt.Printf("  Context: %s (%d sources)\n", result.ContextStatus, len(result.Sources))
			fmt.Printf("  Assistant: %s\n\n", result.Answer)
		}
		final = result
	}
	if final == nil {
		return TestResult{}, fmt.Errorf("scenario %s has no turns", scenario.ID)
	}

	retrieved := make([]string, 0, len(final.Sources))
	for _, src := range final.Sources {
		retrieved = append(retrieved, src.Text)
	}

	result := r.metrics.EvaluateTest(scenario, final.Answer, retrieved)
	result.Details["standalone_query"] = final.StandaloneQuery
	result.Details["context_status"] = string(final.ContextStatus)
	return result, nil
}

// setupTest ingests the scenario documents in order
func (r *BenchmarkRunner) setupTest(ctx context.Context, a *app.App, scenario TestScenario) error {
	ingestor, err := a.Ingestor()
	if err != nil {
		return err
	}
	for _, doc := range scenario.Documents {
		if _, err := ingestor.Ingest(ctx, core.Document{SessionID: doc.SessionID, Ref: doc.Ref, Text: doc.Text}); err != nil {
			return fmt.Errorf("ingest %s/%s: %w", doc.SessionID, doc.Ref, err)
		}
	}
	return nil
}

// RunAllTests runs every scenario; a scenario that errors is recorded as a failure
func (r *BenchmarkRunner) RunAllTests(ctx context.Context) []TestResult {
	scenarios := GetAllTests()
	results := make([]TestResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		result, err := r.RunTest(ctx, scenario)
		if err != nil {
			result = TestResult{
				TestID:       scenario.ID,
				TestName:     scenario.Name,
				Status:       "FAIL",
				ErrorMessage: err.Error(),
			}
		}
		results = append(results, result)
	}
	return results
}

// ExportResults exports test results to JSON
func (r *BenchmarkRunner) ExportResults(results []TestResult, outputPath string) error {
	passed := 0
	for _, result := range results {
		if result.Status == "PASS" {
			passed++
		}
	}
	summary := map[string]interface{}{
		"timestamp":   time.Now().Format(time.RFC3339),
		"provider":    r.config.Provider,
		"embedder":    r.config.Embedder,
		"total_tests": len(results),
		"passed":      passed,
		"failed":      len(results) - passed,
		"results":     results,
	}

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
