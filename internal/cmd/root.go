package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/miladsoleymani/brokerbridge/config"

	// Broker plugins register themselves in init().
	_ "github.com/miladsoleymani/brokerbridge/plugins/kafka"
	_ "github.com/miladsoleymani/brokerbridge/plugins/mqtt"
	_ "github.com/miladsoleymani/brokerbridge/plugins/nats"
	_ "github.com/miladsoleymani/brokerbridge/plugins/pubsub"
	_ "github.com/miladsoleymani/brokerbridge/plugins/rabbitmq"
	_ "github.com/miladsoleymani/brokerbridge/plugins/redis"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "brokerbridge",
	Short: "Bridge dataplane traffic to message brokers",
	Long: `brokerbridge runs a resource provider that forwards every message sent
to a provisioned instance to a topic on an external broker (Kafka, NATS,
RabbitMQ, Redis, MQTT or Google Cloud Pub/Sub).`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $"+config.EnvPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(cfg.Level()).With().Timestamp().Str("service", "brokerbridge").Logger()
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
