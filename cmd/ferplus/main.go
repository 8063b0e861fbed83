package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tonipenya/learn-emotion-detection/internal/config"
	"github.com/tonipenya/learn-emotion-detection/internal/log"
)

var (
	cfg    *config.Config
	logger *logrus.Logger
)

func fail(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

func main() {
	root := &cobra.Command{
		Use:   "ferplus",
		Short: "work with the FER+ dataset and emotion models",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			cfg, err = config.Load()
			if err != nil {
				logrus.Fatal(err)
			}
			logger = log.New(log.Options{
				Level: cfg.LogLevel,
				Dir:   cfg.LogDir,
				Env:   cfg.AppEnv,
				Name:  "ferplus",
			})
		},
	}

	root.AddCommand(summaryCmd(), predictCmd(), metricsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
