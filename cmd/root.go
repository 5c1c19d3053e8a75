package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-coach/internal/animator"
	"github.com/spigell/resume-coach/internal/assessment"
	"github.com/spigell/resume-coach/internal/upload"
)

const (
	app = "resume-coach"

	providerHTTP   = "http"
	providerGemini = "gemini"
)

type Config struct {
	Service  *ServiceConfig  `mapstructure:"service" validate:"required"`
	Upload   *UploadConfig   `mapstructure:"upload"`
	Analysis *AnalysisConfig `mapstructure:"analysis"`
	Metrics  *MetricsConfig  `mapstructure:"metrics"`
}

type ServiceConfig struct {
	Provider          string        `mapstructure:"provider" validate:"oneof=http gemini"`
	URL               string        `mapstructure:"url" validate:"omitempty,url"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second" validate:"gte=0"`
	UserAgent         string        `mapstructure:"user-agent"`
	MaxLogLength      int           `mapstructure:"max-log-length" validate:"gte=0"`
	Gemini            *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries" validate:"gte=0"`
}

type UploadConfig struct {
	Roles []string `mapstructure:"roles"`
}

type AnalysisConfig struct {
	TickInterval time.Duration `mapstructure:"tick-interval" validate:"gte=0"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen" validate:"omitempty,hostname_port"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-coach scores a resume against a job description and runs a practice interview",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	for key, env := range map[string]string{
		"service.url":                 "ASSESSMENT_SERVICE_URL",
		"service.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-coach.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("service.provider", providerHTTP)
	viper.SetDefault("service.url", assessment.DefaultBaseURL)
	viper.SetDefault("service.timeout", 2*time.Minute)
	viper.SetDefault("service.requests-per-second", 0)
	viper.SetDefault("service.max-log-length", 200)
	viper.SetDefault("service.gemini.max-retries", 3)
	viper.SetDefault("upload.roles", upload.DefaultRoles)
	viper.SetDefault("analysis.tick-interval", animator.DefaultTick)
	viper.SetDefault("metrics.listen", "")
}

func initConfig() {
	// Config is needed only for the run command.
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine, everything has a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if err := validator.New().Struct(config); err != nil {
		return config, err
	}

	return config, nil
}
