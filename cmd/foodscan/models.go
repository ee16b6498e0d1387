package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pageza/foodscan/backend/config"
	"github.com/pageza/foodscan/backend/internal/classifier"
	"github.com/pageza/foodscan/backend/internal/service"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the ensemble models and whether their checkpoints are present",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ensemble, err := service.NewEnsemble(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	return writeModels(os.Stdout, ensemble.Models())
}

func writeModels(out io.Writer, models []classifier.ModelStatus) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPRESENT\tCHECKPOINT")
	for _, m := range models {
		present := "no"
		if m.Present {
			present = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, present, m.Checkpoint)
	}
	return w.Flush()
}
