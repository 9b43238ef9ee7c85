package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/airbusgeo/geodata-ingester/service/metrics"
	"github.com/spf13/cobra"
)

var fetchAOI string

var fetchCmd = &cobra.Command{
	Use:   "fetch <source>",
	Short: "Fetch a single source",
	Long: `Fetch a single source: sentinel2, tropomi, dem, landcover, admin_boundaries or weather.
The imagery sources require --aoi (see the geojson command).`,
	Args: cobra.ExactArgs(1),
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

		summary, err := wf.Fetch(ctx, strings.ToLower(args[0]), fetchAOI)
		if summary != nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.Encode(summary)
		}
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchAOI, "aoi", "", "aoi handle or path of a geojson file of the aoi directory")
}
