package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"exam-rag/internal/llmservice"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := llmservice.Hint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "提示：%s\n", hint)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:           "exam-rag",
		Short:         "國文科文言文 AI 出題系統",
		Long:          "Generate classical Chinese exam papers from an indexed library of texts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := zerolog.InfoLevel
			if debug {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}
	cmd.PersistentFlags().String("config", configFilePath, "Path to the config file")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(buildIndexCmd())
	cmd.AddCommand(indexCmd())
	cmd.AddCommand(retrieveCmd())
	cmd.AddCommand(generateCmd())
	cmd.AddCommand(serveCmd())
	return cmd
}
