package main

import (
	"context"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run a single refresh tick and exit",
	RunE:  fetch,
}

func fetch(cmd *cobra.Command, args []string) error {
	pipeline, err := buildPipeline()
	if err != nil {
		return err
	}

	pipeline.RefreshOnce(context.Background())

	return nil
}
