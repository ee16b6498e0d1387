// Command foodscan analyzes a food photo from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/config"
	"github.com/pageza/foodscan/backend/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "foodscan",
	Short:         "Identify a food photo and assess it against a health profile",
	Long:          "foodscan runs the local classifier ensemble and the Gemini food oracle on a photo, then scores the food for the given body metrics and conditions.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logLevel, config.IsProduction())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
