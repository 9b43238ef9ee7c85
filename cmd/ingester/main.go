package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/airbusgeo/geodata-ingester/service/log"
	"github.com/airbusgeo/geodata-ingester/service/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "ingester",
	Short: "Geospatial data ingester",
	Long: `Downloads Sentinel-2 and TROPOMI products over the area of a place, the SRTM DEM,
the ESA land cover, the GADM administrative boundaries and NOAA weather summaries,
and records their provenance.

Without subcommand, it prompts for the name of the place and fetches all the sources.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runAll,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("store-uri", "", "provenance store (mongodb://, postgres:// or memory://)")
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("store_uri", rootCmd.PersistentFlags().Lookup("store-uri"))
	setDefaults(v)

	rootCmd.AddCommand(serveCmd, fetchCmd, geojsonCmd)
}

// initConfig reads the config file and the INGESTER_* environment variables
func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatal("config file", zap.Error(err))
		}
	}
	v.SetEnvPrefix("INGESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// setup loads the config and the logger of the commands
func setup(cmd *cobra.Command) (context.Context, *config, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return nil, nil, err
	}
	return cmd.Context(), cfg, nil
}

func runAll(cmd *cobra.Command, args []string) error {
	ctx, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), "Enter the name of the place: ")
	place, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && place == "" {
		return fmt.Errorf("read place: %w", err)
	}

	wf, store, err := newWorkflow(ctx, cfg, metrics.NewMetrics())
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "Downloading and storing datasets...")
	handle, summaries, err := wf.RunAll(ctx, strings.TrimSpace(place))
	for _, s := range summaries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: found %d, recorded %d, skipped %d, failed %d\n", s.Source, s.Found, s.Recorded, s.Skipped, s.Failed)
	}
	if err != nil {
		return err
	}
	log.Logger(ctx).Sugar().Infof("aoi: %s", handle)
	fmt.Fprintln(cmd.OutOrStdout(), "All datasets downloaded and stored successfully.")
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal("error", zap.Error(err))
	}
}
