package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/teilomillet/gollm"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/textflow-ai/textflow/config"
	"github.com/textflow-ai/textflow/errors"
	"github.com/textflow-ai/textflow/llm"
	"github.com/textflow-ai/textflow/pipeline"
	"github.com/textflow-ai/textflow/server"
	"github.com/textflow-ai/textflow/stages"
)

var (
	configFile = flag.String("config", "textflow.yaml", "Path to configuration file")
	validate   = flag.Bool("validate", false, "Validate configuration and exit")
	prompt     = flag.String("prompt", "", "Run a single prompt through the model pipeline and exit")
	version    = flag.Bool("version", false, "Print version and exit")
)

const Version = "v0.1.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("textflow %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *validate {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	errors.SetLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	if *prompt != "" {
		if err := runPrompt(ctx, cfg, logger, *prompt); err != nil {
			logger.Fatal("Prompt failed", zap.Error(err))
		}
		return
	}

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

// runPrompt assembles the full model pipeline and runs one prompt through
// it: token guard, throttle, model call behind a circuit breaker, then text
// normalization.
func runPrompt(ctx context.Context, cfg *config.Config, logger *zap.Logger, input string) error {
	client, err := createLLM(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create LLM: %w", err)
	}

	model, err := stages.NewModel(client, logger)
	if err != nil {
		return err
	}

	var modelStage pipeline.Stage[string, *llm.CompletionResult] = model
	if cfg.Pipeline.Breaker.Enabled {
		modelStage = pipeline.Breaker(modelStage, pipeline.BreakerConfig{
			Name:             "model",
			FailureThreshold: cfg.Pipeline.Breaker.FailureThreshold,
			ResetTimeout:     cfg.Pipeline.Breaker.ResetTimeout,
			HalfOpenRequests: cfg.Pipeline.Breaker.HalfOpenRequests,
		}, logger)
	}

	var head pipeline.Stage[string, string] = pipeline.StageFunc[string, string](
		func(ctx context.Context, s string) (string, error) { return s, nil },
	)
	if cfg.Pipeline.MaxInputTokens > 0 {
		tokenizer, err := stages.NewTiktokenTokenizer(cfg.LLM.Model)
		if err != nil {
			return fmt.Errorf("create tokenizer: %w", err)
		}
		guard, err := stages.NewTokenLimit(tokenizer, cfg.Pipeline.MaxInputTokens)
		if err != nil {
			return err
		}
		head = guard
	}
	if cfg.Pipeline.ThrottleRPS > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.Pipeline.ThrottleRPS), 1)
		head = pipeline.Pipe[string, string, string](head, pipeline.Throttle[string](limiter))
	}

	output := stages.NewStringOutput(stages.WithLogger(logger))
	normalize := pipeline.StageFunc[*llm.CompletionResult, string](
		func(ctx context.Context, r *llm.CompletionResult) (string, error) {
			return output.Invoke(ctx, r)
		},
	)

	chain := pipeline.Pipe(pipeline.Pipe(head, modelStage), normalize)

	text, err := chain.Invoke(ctx, input)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

// reloadable delegates to the stage held in an atomic value, so a config
// reload can swap the normalization behavior under a running server.
type reloadable struct {
	current atomic.Value // pipeline.Stage[any, string]
}

func (r *reloadable) load() pipeline.Stage[any, string] {
	return r.current.Load().(pipeline.Stage[any, string])
}

func (r *reloadable) Invoke(ctx context.Context, input any) (string, error) {
	return r.load().Invoke(ctx, input)
}

func (r *reloadable) Transform(ctx context.Context, in <-chan pipeline.Item[any]) <-chan pipeline.Item[string] {
	return r.load().Transform(ctx, in)
}

// watchConfig applies every configuration update the watcher reports until
// ctx is cancelled or the update stream closes.
func watchConfig(ctx context.Context, w config.Watcher, apply func(*config.Config), logger *zap.Logger) {
	updates := w.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case newCfg, ok := <-updates:
				if !ok {
					return
				}
				apply(newCfg)
				logger.Info("Pipeline rebuilt from new configuration",
					zap.Bool("reduce_output_stream", newCfg.Pipeline.ReduceOutputStream),
				)
			}
		}
	}()
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := pipeline.NewMetrics()

	buildStage := func(c *config.Config) pipeline.Stage[any, string] {
		out := stages.NewStringOutput(
			stages.WithReduceOutputStream(c.Pipeline.ReduceOutputStream),
			stages.WithLogger(logger),
		)
		return pipeline.Instrument[any, string]("string_output", out, metrics)
	}

	holder := &reloadable{}
	holder.current.Store(buildStage(cfg))

	// Hot reload: swap the stage when the config file changes.
	if cw, err := config.NewConfigWatcher(*configFile, logger); err != nil {
		logger.Warn("Config watcher disabled", zap.Error(err))
	} else {
		var watcher config.Watcher = cw
		defer watcher.Close()
		watchConfig(ctx, watcher, func(c *config.Config) {
			holder.current.Store(buildStage(c))
		}, logger)
	}

	router := server.NewRouter(holder, metrics, logger)
	srv := server.NewServer(cfg.Server, router, logger)

	logger.Info("Starting textflow",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
	)
	return srv.Start(ctx)
}

func createLLM(cfg config.LLMConfig) (gollm.LLM, error) {
	opts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}
	client, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("create LLM: %w", err)
	}
	return client, nil
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zc.Level = level
	return zc.Build()
}
