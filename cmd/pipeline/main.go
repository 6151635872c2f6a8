package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"example.com/eligibility/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "pipeline",
		Short:        "Eligibility extract staging pipeline",
		Long:         "Stages per-vendor eligibility extracts into the warehouse with full lineage, then normalizes and verifies them.",
		SilenceUsage: true,
	}
	root.AddCommand(
		newInitDBCmd(cfg),
		newManifestCmd(cfg),
		newIngestCmd(cfg),
		newSilverCmd(cfg),
		newVerifyCmd(cfg),
		newRunCmd(cfg),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
