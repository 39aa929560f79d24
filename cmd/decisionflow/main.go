package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/psyai/decisionflow"
)

// CLI configuration
type Config struct {
	Scenario   string
	Options    []string
	ResumeID   string
	Approve    bool
	Override   string
	List       bool
	DataDir    string
	LogsDir    string
	PredictURL string
	APIKey     string
	Timeout    time.Duration
	Verbose    bool
	JSON       bool
}

func main() {
	config := parseFlags()
	logger := setupLogger(config.Verbose)

	store, err := decisionflow.NewFileCheckpointStore(config.DataDir)
	if err != nil {
		log.Fatalf("Failed to create checkpoint store: %v", err)
	}

	var decisionLog decisionflow.DecisionLog
	if config.LogsDir != "" {
		decisionLog = decisionflow.NewFileDecisionLog(config.LogsDir)
	} else {
		decisionLog = decisionflow.NewNullDecisionLog()
	}

	engine, err := decisionflow.NewEngine(decisionflow.Options{
		Store:       store,
		Logger:      logger,
		DecisionLog: decisionLog,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	graph, err := decisionflow.NewDecisionGraph(buildPredictor(config))
	if err != nil {
		log.Fatalf("Failed to build decision graph: %v", err)
	}

	ctx := context.Background()
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	switch {
	case config.List:
		listThreads(ctx, store)
	case config.ResumeID != "":
		resumeThread(ctx, engine, graph, config)
	default:
		submitScenario(ctx, engine, graph, config)
	}
}

func submitScenario(ctx context.Context, engine *decisionflow.Engine, graph *decisionflow.Graph, config *Config) {
	state := decisionflow.NewDecisionState(config.Scenario, config.Options)
	if err := state.Validate(); err != nil {
		color.Red("Error: %v", err)
		flag.Usage()
		os.Exit(1)
	}

	threadID := decisionflow.NewThreadID()
	result, err := engine.Run(ctx, graph, state, threadID)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	if config.JSON {
		printJSON(map[string]any{"thread_id": threadID, "state": result})
		return
	}

	color.Cyan("Scenario: %s", result.Scenario)
	color.White("Options:")
	for i, option := range result.Options {
		fmt.Printf("  %d. %s\n", i+1, option)
	}
	fmt.Println()
	if result.Status == decisionflow.StatusAwaitingReview {
		if result.Prediction == decisionflow.PredictionUnavailable {
			color.Yellow("Prediction unavailable; a manual decision is required.")
		} else {
			color.Green("Recommended: %s (confidence %.1f%%)", result.Prediction, result.Confidence*100)
		}
		fmt.Println()
		color.White("To approve:  %s -resume %s -approve", os.Args[0], threadID)
		color.White("To override: %s -resume %s -override <option>", os.Args[0], threadID)
	} else {
		color.White("Status: %s", result.Status)
	}
}

func resumeThread(ctx context.Context, engine *decisionflow.Engine, graph *decisionflow.Graph, config *Config) {
	if !config.Approve && config.Override == "" {
		color.Red("Error: -resume requires -approve or -override <option>")
		os.Exit(1)
	}
	patch := decisionflow.ReviewPatch{
		Approved: config.Approve,
		Decision: config.Override,
	}

	result, err := engine.Resume(ctx, graph, config.ResumeID, patch)
	if err != nil {
		var notFound *decisionflow.ThreadNotFoundError
		var invalid *decisionflow.InvalidStateError
		switch {
		case errors.As(err, &notFound):
			color.Red("No pending decision for thread %s", config.ResumeID)
		case errors.As(err, &invalid):
			color.Red("Thread %s is not awaiting review", config.ResumeID)
		default:
			color.Red("Resume failed: %v", err)
		}
		os.Exit(1)
	}

	if config.JSON {
		printJSON(map[string]any{"thread_id": config.ResumeID, "state": result})
		return
	}

	color.Green("Decision recorded: %s", result.HumanDecision)
	if result.HumanApproved {
		color.White("The recommendation was approved.")
	} else {
		color.White("The recommendation was overridden.")
	}
}

func listThreads(ctx context.Context, store *decisionflow.FileCheckpointStore) {
	ids, err := store.ListThreads(ctx)
	if err != nil {
		log.Fatalf("Failed to list threads: %v", err)
	}
	if len(ids) == 0 {
		color.Blue("No pending decisions")
		return
	}
	color.Blue("Pending decisions:")
	for _, id := range ids {
		record, err := store.Get(ctx, id)
		if err != nil || record == nil {
			continue
		}
		fmt.Printf("  %s  %-22s  %s\n", id, record.State.Status, truncate(record.State.Scenario, 60))
	}
}

func buildPredictor(config *Config) decisionflow.Predictor {
	if config.PredictURL == "" {
		// No provider configured: every run takes the prediction_error path
		// and waits for a manual decision.
		return decisionflow.PredictorFunc(func(ctx context.Context, scenario string, options []string) (decisionflow.Prediction, error) {
			return decisionflow.Prediction{}, fmt.Errorf("no prediction provider configured")
		})
	}
	predictor, err := decisionflow.NewHTTPPredictor(decisionflow.HTTPPredictorOptions{
		BaseURL: config.PredictURL,
		APIKey:  config.APIKey,
		Timeout: config.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to create predictor: %v", err)
	}
	return predictor
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.Scenario, "scenario", "", "Decision scenario to submit")
	flag.StringVar(&config.Scenario, "s", "", "Decision scenario to submit (shorthand)")

	var optionFlags stringSlice
	flag.Var(&optionFlags, "option", "Candidate option (can be used multiple times, at least 2 required)")
	flag.Var(&optionFlags, "o", "Candidate option (shorthand, can be used multiple times)")

	flag.StringVar(&config.ResumeID, "resume", "", "Resume a paused thread by id")
	flag.BoolVar(&config.Approve, "approve", false, "Approve the recommendation when resuming")
	flag.StringVar(&config.Override, "override", "", "Override with the given option when resuming")
	flag.BoolVar(&config.List, "list", false, "List pending decisions and exit")

	flag.StringVar(&config.DataDir, "data", "", "Directory for checkpoint storage (default: ~/.psyai/decisionflow/threads)")
	flag.StringVar(&config.LogsDir, "logs", "", "Directory for decision history logs (optional)")
	flag.StringVar(&config.PredictURL, "predict-url", os.Getenv("DECISIONFLOW_PREDICT_URL"), "Base URL of the prediction API")
	flag.StringVar(&config.APIKey, "api-key", os.Getenv("DECISIONFLOW_API_KEY"), "API key for the prediction API")

	flag.DurationVar(&config.Timeout, "timeout", 0, "Overall timeout (e.g., 30s, 5m)")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&config.Verbose, "v", false, "Enable verbose logging (shorthand)")
	flag.BoolVar(&config.JSON, "json", false, "Output results in JSON format")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `decisionflow - human-in-the-loop decision workflows

Usage: %s [options]

Examples:
  # Submit a scenario and pause for review
  %s -scenario "Launch in Q1 or Q2?" -option "Q1" -option "Q2"

  # Approve the recommendation
  %s -resume thread_01h455vb4pex5vsknk084sn02q -approve

  # Override with a different option
  %s -resume thread_01h455vb4pex5vsknk084sn02q -override "Q2"

  # Show pending decisions
  %s -list

Options:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()
	config.Options = optionFlags
	return config
}

// Custom flag type for handling repeated option values
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func setupLogger(verbose bool) *slog.Logger {
	if verbose {
		return decisionflow.NewLogger()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func printJSON(value any) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Fatalf("Failed to format output: %v", err)
	}
	fmt.Println(string(data))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
