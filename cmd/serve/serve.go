// Package serve implements the command running the relay.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tabletrelay/cmd/shared"
	"tabletrelay/pkg/config"
	"tabletrelay/pkg/log"
	"tabletrelay/pkg/metrics"
	"tabletrelay/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
)

const categoryServe = "serve"

const (
	pointerFlag    = "pointer"
	configFlag     = "config"
	metricsFlag    = "metrics"
	displayFlag    = "display"
	deviceNameFlag = "device-name"
)

// GetCommand ...
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Relay pointer input into a virtual tablet and stream the screen",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if errors := cfg.Validate(); len(errors) > 0 {
				log.ErrorMsg("Argument validation errors:\n")
				for _, err := range errors {
					log.ErrorMsg(" - %s\n", err)
				}
				return fmt.Errorf("exiting")
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			shared.SetupSignalHandling(cancel)

			return serve(ctx, cfg, log.NewLogger(cfg.Verbose))
		},
		Flags: getFlags(),
	}
}

func getFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:     pointerFlag,
			Aliases:  []string{"p"},
			Usage:    "Address of the pointer endpoint",
			Category: categoryServe,
			Value:    config.DefaultPointerAddr,
		},
		&cli.StringFlag{
			Name:     configFlag,
			Aliases:  []string{"c"},
			Usage:    "YAML configuration file, flags take precedence",
			Category: categoryServe,
		},
		&cli.StringFlag{
			Name:     metricsFlag,
			Aliases:  []string{"m"},
			Usage:    "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9100",
			Category: categoryServe,
		},
		&cli.StringFlag{
			Name:     displayFlag,
			Usage:    "X11 display to capture",
			Category: categoryServe,
		},
		&cli.StringFlag{
			Name:     deviceNameFlag,
			Usage:    "Name of the virtual input device",
			Category: categoryServe,
		},
	}, shared.GetCommonFlags()...)
}

// loadConfig reads the config file, if any, and applies explicitly set flags.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := cmd.String(configFlag); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if cmd.IsSet(pointerFlag) {
		cfg.PointerAddr = cmd.String(pointerFlag)
	}
	if cmd.IsSet(metricsFlag) {
		cfg.MetricsAddr = cmd.String(metricsFlag)
	}
	if cmd.IsSet(displayFlag) {
		cfg.Capture.Display = cmd.String(displayFlag)
	}
	if cmd.IsSet(deviceNameFlag) {
		cfg.Device.Name = cmd.String(deviceNameFlag)
	}
	if cmd.Bool(shared.VerboseFlag) {
		cfg.Verbose = true
	}

	return cfg, nil
}

// serve runs the relay until it fails or ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.InfoMsg("Serving metrics on http://%s/metrics\n", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.ErrorMsg("metrics server: %s\n", err)
			}
		}()
		defer srv.Close()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.RunConfig(cfg, logger, reg)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		logger.InfoMsg("Shutting down\n")
		return nil
	}
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}
