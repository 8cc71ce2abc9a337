// ABOUTME: Command-line benchmark runner for RAGAS-style scenarios
// ABOUTME: Runs the scenarios against the configured providers and writes JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/harper/docchat/benchmarks/ragas"
	"github.com/harper/docchat/internal/config"
	"github.com/harper/docchat/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	testID := flag.String("test", "", "Run a specific scenario (followup, isolation, revision). If empty, runs all.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	configPath := flag.String("config", "", "Path to a YAML config file")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (continuing anyway): %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.NeedsOpenAIKey() && cfg.OpenAIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required for the configured providers")
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	fmt.Println("========================================")
	fmt.Println("docchat RAGAS Benchmarks")
	fmt.Println("========================================")
	fmt.Printf("Provider: %s, embedder: %s\n\n", cfg.Provider, cfg.Embedder)

	runner := ragas.NewBenchmarkRunner(cfg, logger, *verbose)
	ctx := context.Background()

	var results []ragas.TestResult
	if *testID == "" {
		fmt.Println("Running all benchmark scenarios...")
		results = runner.RunAllTests(ctx)
	} else {
		var scenario *ragas.TestScenario
		ids := []string{}
		for _, s := range ragas.GetAllTests() {
			ids = append(ids, s.ID)
			if s.ID == *testID {
				scenario = &s
			}
		}
		if scenario == nil {
			log.Fatalf("Unknown test ID: %s (valid options: %s)", *testID, strings.Join(ids, ", "))
		}

		fmt.Printf("Running test: %s\n\n", scenario.Name)
		result, err := runner.RunTest(ctx, *scenario)
		if err != nil {
			log.Fatalf("Test failed: %v", err)
		}
		results = []ragas.TestResult{result}
	}

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	passed := 0
	failed := 0

	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		if result.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", result.ErrorMessage)
		}
		fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		fmt.Printf("  Status: %s\n", result.Status)

		if result.Status == "PASS" {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", len(results))
	fmt.Printf("Passed: %d\n", passed)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Println("========================================")

	if err := runner.ExportResults(results, *outputPath); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}
	fmt.Printf("✓ Results exported to: %s\n", *outputPath)

	if failed > 0 {
		os.Exit(1)
	}
}
