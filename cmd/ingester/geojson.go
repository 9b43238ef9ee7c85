package main

import (
	"fmt"
	"strings"

	"github.com/airbusgeo/geodata-ingester/service/metrics"
	"github.com/spf13/cobra"
)

var geojsonCmd = &cobra.Command{
	Use:   "geojson <place>",
	Short: "Create the aoi of a place",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		wf, store, err := newWorkflow(ctx, cfg, metrics.NewMetrics())
		if err != nil {
			return err
		}
		defer store.Close()

		handle, err := wf.AOIFromPlace(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), wf.AOIs().Path(handle))
		return nil
	},
}
