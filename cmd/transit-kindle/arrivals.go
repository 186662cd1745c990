package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	transit "github.com/lily-mara/transit-kindle"
)

var arrivalsCmd = &cobra.Command{
	Use:   "arrivals",
	Short: "Print grouped upcoming arrivals from the cache",
	RunE:  arrivals,
}

var refreshFirst bool

func init() {
	arrivalsCmd.Flags().BoolVarP(&refreshFirst, "refresh", "r", false, "Run a refresh tick before reading")
}

func arrivals(cmd *cobra.Command, args []string) error {
	pipeline, err := buildPipeline()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if refreshFirst {
		pipeline.RefreshOnce(ctx)
	}

	data, err := pipeline.Load(ctx)
	if err != nil {
		return err
	}

	now := time.Now()

	agencies := make([]string, 0, len(data))
	for agency := range data {
		agencies = append(agencies, agency)
	}
	sort.Strings(agencies)

	for _, agency := range agencies {
		arrivals := data[agency]
		fmt.Printf("%s (live %s)\n", agency, arrivals.LiveTime.Local().Format("15:04"))

		directions := make([]string, 0, len(arrivals.Directions))
		for direction := range arrivals.Directions {
			directions = append(directions, direction)
		}
		sort.Strings(directions)

		for _, direction := range directions {
			fmt.Printf("  %s\n", direction)
			for _, group := range arrivals.Directions[direction] {
				minutes := make([]string, 0, len(group.Times))
				for _, t := range group.Times {
					minutes = append(minutes, fmt.Sprintf("%d", transit.MinutesUntil(t, now)))
				}
				fmt.Printf("    %s → %s: %s min\n",
					group.Line.Line, group.Line.Destination, strings.Join(minutes, ", "))
			}
		}
	}

	return nil
}
