package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spigell/resume-coach/internal/assessment"
	"github.com/spigell/resume-coach/internal/assessment/gemini"
	"github.com/spigell/resume-coach/internal/jobsource"
	"github.com/spigell/resume-coach/internal/logger"
	"github.com/spigell/resume-coach/internal/metrics"
	"github.com/spigell/resume-coach/internal/secrets"
	"github.com/spigell/resume-coach/internal/workflow"
)

const geminiAPIKeyEnv = "GEMINI_API_KEY"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score a resume and practice interview questions",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("resume", "r", "", "path to the resume file (pdf, doc, docx)")
	runCmd.Flags().String("job-description", "", "job description text")
	runCmd.Flags().String("job-description-file", "", "file with the job description")
	runCmd.Flags().String("job-url", "", "job posting url to read the description from")
	runCmd.Flags().Bool("skip-practice", false, "stop after the score is shown")
	runCmd.Flags().String("metrics-listen", "", "address to serve prometheus metrics on, e.g. :9090")

	viper.BindPFlag("metrics.listen", runCmd.Flags().Lookup("metrics-listen"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-coach", zap.String("version", version))
	logger.Debug("starting with config",
		zap.String("provider", config.Service.Provider),
		zap.String("url", config.Service.URL),
		zap.Duration("timeout", config.Service.Timeout),
		zap.String("metrics", metricsListen(config)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newAssessmentService(ctx, config.Service, logger)
	if err != nil {
		logger.Fatal("building the assessment service", zap.Error(err))
	}

	recorder := metrics.New()
	svc = assessment.Instrument(svc, recorder)

	flow := workflow.NewFlow(logger)
	flow.OnEnter(func(phase workflow.Phase) {
		recorder.PhaseEntered(string(phase))
	})
	recorder.PhaseEntered(string(flow.Current().Phase))

	s := &session{
		flow:   flow,
		svc:    svc,
		jobs:   jobsource.New(flow.Logger()),
		prompt: terminalPrompter{},
		out:    os.Stdout,
		config: config,
		opts:   runOptionsFromFlags(cmd),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if listen := metricsListen(config); listen != "" {
		g.Go(func() error {
			logger.Info("serving metrics", zap.String("listen", listen))
			return recorder.Serve(gctx, listen)
		})
	}
	g.Go(func() error {
		defer cancel()
		return s.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("exiting", zap.Error(err))
	}

	logger.Info("session finished", zap.String("session_id", flow.SessionID()))
}

func runOptionsFromFlags(cmd *cobra.Command) runOptions {
	flag := func(name string) string {
		if cmd == nil {
			return ""
		}
		f := cmd.Flag(name)
		if f == nil {
			return ""
		}
		return f.Value.String()
	}

	return runOptions{
		ResumePath: flag("resume"),
		JobSource: jobsource.Source{
			Text: flag("job-description"),
			File: flag("job-description-file"),
			URL:  flag("job-url"),
		},
		SkipPractice: strings.EqualFold(flag("skip-practice"), "true"),
	}
}

func metricsListen(config *Config) string {
	if config == nil || config.Metrics == nil {
		return ""
	}
	return strings.TrimSpace(config.Metrics.Listen)
}

func newAssessmentService(ctx context.Context, cfg *ServiceConfig, logger *zap.Logger) (assessment.Service, error) {
	if cfg == nil {
		return nil, errors.New("service configuration is required")
	}

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", providerHTTP:
		client := assessment.New(logger.With(zap.String("provider", providerHTTP)))
		if cfg.URL != "" {
			client.BaseURL = cfg.URL
		}
		if cfg.Timeout > 0 {
			client.HTTPClient.Timeout = cfg.Timeout
		}
		if cfg.UserAgent != "" {
			client.UserAgent = cfg.UserAgent
		}
		if cfg.MaxLogLength > 0 {
			client.MaxLogLength = cfg.MaxLogLength
		}
		if cfg.RequestsPerSecond > 0 {
			client.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
		}
		return client, nil
	case providerGemini:
		return newGeminiAssessor(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported assessment provider: %s", cfg.Provider)
	}
}

func newGeminiAssessor(ctx context.Context, cfg *ServiceConfig, logger *zap.Logger) (*gemini.Assessor, error) {
	geminiCfg := cfg.Gemini
	if geminiCfg == nil {
		geminiCfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  geminiCfg.APIKeyFile,
		Value: geminiCfg.APIKey,
		Env:   geminiAPIKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set service.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := logger.With(
		zap.String("provider", providerGemini),
		zap.String("model", geminiCfg.Model),
		zap.Int("ai_retry_attempts", geminiCfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, &gemini.GeneratorConfig{
		APIKey:     apiKey,
		Model:      geminiCfg.Model,
		MaxRetries: geminiCfg.MaxRetries,
	}, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewAssessor(generator, genLogger, cfg.MaxLogLength), nil
}
