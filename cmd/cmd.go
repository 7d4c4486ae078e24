package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "leave-management",
	Short:        "Leave Management",
	Long:         `Leave requests, manager approvals and per-year leave balances.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func isEnvOnly() bool {
	return os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true"
}

// loadConfig reads .env, then config.yml under path (with ENV_ overrides).
// Production and docker runs read the environment only.
func loadConfig(path string) (*internal.Config, error) {
	_ = godotenv.Load()

	var cfg *internal.Config
	if isEnvOnly() {
		cfg = internal.LoadConfigFromEnv()
	} else {
		fileCfg, err := loadConfigFile(path)
		switch {
		case err == nil:
			cfg = fileCfg
		case errors.As(err, &viper.ConfigFileNotFoundError{}):
			cfg = internal.LoadConfigFromEnv()
		default:
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}
	initLogger(cfg)
	return cfg, nil
}

func loadConfigFile(path string) (*internal.Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func initLogger(cfg *internal.Config) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	logger.InitWith(env, cfg.Observability.Logging.Format, os.Stdout)
	logger.SetLevel(cfg.Observability.Logging.Level)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory holding config.yml")
}
