package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/airbusgeo/geodata-ingester/service/log"
	"github.com/airbusgeo/geodata-ingester/service/metrics"
	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ingestion api",
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

		headersOk := handlers.AllowedHeaders([]string{"*"})
		originsOk := handlers.AllowedOrigins([]string{"*"})
		methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
		s := http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handlers.CORS(originsOk, headersOk, methodsOk)(BearerAuthenticate(cfg.APIKey, wf.NewHandler())),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.Shutdown(shutdownCtx)
		}()

		log.Logger(ctx).Sugar().Infof("ingester listens on :%s", cfg.Port)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}
