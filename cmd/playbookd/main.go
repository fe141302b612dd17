// Playbook Engine CLI
//
// Runs one playbook generation end to end: discovery through reflection
// through final assembly, writing the playbook as JSON.
//
// Usage:
//
//	playbookd -input "AI-powered payroll for mid-market companies"
//	playbookd -input-file brief.txt -questionnaire answers.json -output playbook.json
//	PLAYBOOK_LLM_API_KEY=... playbookd -config playbookd.yaml -input "..."
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/playbookforge/playbook-engine/engine/agents"
	"github.com/playbookforge/playbook-engine/engine/config"
	"github.com/playbookforge/playbook-engine/engine/llm"
	"github.com/playbookforge/playbook-engine/engine/logging"
	"github.com/playbookforge/playbook-engine/engine/observability"
	"github.com/playbookforge/playbook-engine/engine/pipeline"
	"github.com/playbookforge/playbook-engine/engine/store"
	"github.com/playbookforge/playbook-engine/events"
)

type options struct {
	configPath        string
	input             string
	inputFile         string
	questionnaireFile string
	outputFile        string
	qualityThreshold  float64
	maxCycles         int
	quiet             bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file path")
	flag.StringVar(&opts.input, "input", "", "business description to build a playbook for")
	flag.StringVar(&opts.inputFile, "input-file", "", "file containing the business description")
	flag.StringVar(&opts.questionnaireFile, "questionnaire", "", "JSON file with questionnaire answers")
	flag.StringVar(&opts.outputFile, "output", "", "write the playbook JSON here (default stdout)")
	flag.Float64Var(&opts.qualityThreshold, "quality-threshold", 0, "override the configured quality threshold")
	flag.IntVar(&opts.maxCycles, "max-cycles", 0, "override the configured reflection cycle bound")
	flag.BoolVar(&opts.quiet, "quiet", false, "suppress stage progress output")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.qualityThreshold > 0 {
		cfg.Generation.QualityThreshold = opts.qualityThreshold
	}
	if opts.maxCycles > 0 {
		cfg.Generation.MaxReflectionCycles = opts.maxCycles
	}
	cfg.Generation.Normalize()

	businessInput, err := resolveInput(opts)
	if err != nil {
		return err
	}
	questionnaire, err := loadQuestionnaire(opts.questionnaireFile)
	if err != nil {
		return err
	}

	log, err := logging.NewProduction(cfg.Observability.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.TracingEnabled {
		shutdown, err := observability.InitTracer(observability.TracerConfig{
			ServiceName:    cfg.Observability.ServiceName,
			ServiceVersion: cfg.Observability.ServiceVersion,
			Endpoint:       cfg.Observability.OTLPEndpoint,
			SampleRatio:    cfg.Observability.TraceSampleRatio,
		})
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	provider, err := llm.NewAnthropicProvider(cfg.LLM)
	if err != nil {
		return err
	}
	caller := llm.NewCaller(provider, cfg.LLM.CallTimeout, log)

	pl := config.DefaultPipeline()
	pl.RunBudget = cfg.Generation.RunBudget

	agentSet, err := agents.BuildAgents(pl, log, caller)
	if err != nil {
		return err
	}

	bus := events.NewInMemoryBus(log)
	bus.AddMiddleware(events.NewLoggingMiddleware(log))
	if !opts.quiet {
		subscribeProgress(bus)
	}

	runner, err := pipeline.NewRunner(pl, agentSet, log, bus, st)
	if err != nil {
		return err
	}

	playbook, _, err := runner.Generate(ctx, pipeline.GenerateRequest{
		BusinessInput:       businessInput,
		Questionnaire:       questionnaire,
		QualityThreshold:    cfg.Generation.QualityThreshold,
		MaxReflectionCycles: cfg.Generation.MaxReflectionCycles,
	})
	if err != nil {
		return err
	}

	return writePlaybook(playbook, opts.outputFile)
}

func resolveInput(opts options) (string, error) {
	if opts.input != "" && opts.inputFile != "" {
		return "", errors.New("-input and -input-file are mutually exclusive")
	}
	if opts.inputFile != "" {
		content, err := os.ReadFile(opts.inputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		opts.input = string(content)
	}
	input := strings.TrimSpace(opts.input)
	if input == "" {
		return "", errors.New("a business description is required (-input or -input-file)")
	}
	return input, nil
}

func loadQuestionnaire(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questionnaire file: %w", err)
	}
	var answers map[string]any
	if err := json.Unmarshal(content, &answers); err != nil {
		return nil, fmt.Errorf("failed to parse questionnaire JSON: %w", err)
	}
	return answers, nil
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// subscribeProgress prints stage progress to stderr so stdout stays clean
// for the playbook JSON.
func subscribeProgress(bus *events.InMemoryBus) {
	bus.Subscribe("StageStarted", func(ctx context.Context, msg events.Message) (any, error) {
		evt := msg.(*events.StageStarted)
		fmt.Fprintf(os.Stderr, "-> %s (cycle %d)\n", evt.Stage, evt.Cycle)
		return nil, nil
	})
	bus.Subscribe("ReflectionCycleStarted", func(ctx context.Context, msg events.Message) (any, error) {
		evt := msg.(*events.ReflectionCycleStarted)
		fmt.Fprintf(os.Stderr, "== reflection cycle %d (score %.1f, threshold %.1f)\n",
			evt.Cycle, evt.CurrentScore, evt.Threshold)
		return nil, nil
	})
	bus.Subscribe("RunCompleted", func(ctx context.Context, msg events.Message) (any, error) {
		evt := msg.(*events.RunCompleted)
		fmt.Fprintf(os.Stderr, "== run %s: %s in %dms (final score %.1f, %d cycles)\n",
			evt.RunID, evt.Status, evt.DurationMS, evt.FinalScore, evt.ReflectionCycles)
		return nil, nil
	})
}

func writePlaybook(playbook any, path string) error {
	out, err := json.MarshalIndent(playbook, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal playbook: %w", err)
	}
	out = append(out, '\n')

	if path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write playbook: %w", err)
	}
	return nil
}
