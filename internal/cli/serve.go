package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/currency-api/internal/config"
	"github.com/Brownie44l1/currency-api/internal/handlers"
	"github.com/Brownie44l1/currency-api/internal/logger"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var o config.Overrides
	var threshold float32

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the recognition HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("threshold") {
				o.Threshold = &threshold
			}
			cfg, err := g.loadConfig(nil, o)
			if err != nil {
				return err
			}

			cleanup, err := logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Path: cfg.Log.Path})
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()
			log := logger.L()

			rec, err := buildRecognizer(cfg, log)
			if err != nil {
				log.Error("serve.init_failed", "err", err)
				return err
			}
			defer rec.Close()

			h := handlers.NewHandler(rec, handlers.Limits{
				MaxUploadMB: cfg.Server.MaxUploadMB,
				MaxPixels:   cfg.Server.MaxPixels,
			}, log)
			srv := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           handlers.NewRouter(h, cfg.Server.CORSOrigin),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("serve.listening", "addr", srv.Addr, "classes", rec.Labels())
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					log.Error("serve.failed", "err", err)
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("serve.shutting_down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	c.Flags().StringVarP(&o.Port, "port", "p", "", "Listen port (default 8080)")
	c.Flags().StringVar(&o.Backend, "backend", "", "Inference backend: tflite or onnx (default from model extension)")
	c.Flags().StringVarP(&o.ModelPath, "model", "m", "", "Model file")
	c.Flags().StringVarP(&o.Labels, "labels", "l", "", "Labels file, one class per line")
	c.Flags().Float32Var(&threshold, "threshold", 0, "Minimum confidence to report a denomination")
	c.Flags().BoolVar(&o.Speak, "speak", false, "Announce every result through the speech synthesizer")
	return c
}
