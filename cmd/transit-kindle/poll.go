package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run the background refresh loop until interrupted",
	RunE:  poll,
}

func poll(cmd *cobra.Command, args []string) error {
	pipeline, err := buildPipeline()
	if err != nil {
		return err
	}

	pipeline.Start()
	defer pipeline.Shutdown()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	return nil
}
