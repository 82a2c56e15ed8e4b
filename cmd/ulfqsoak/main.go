// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ulfqsoak repeatedly runs producers and consumers against an ulfq
// queue and exits non-zero on the first lost or duplicated value.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"time"

	"code.hybscloud.com/ulfq"
	"code.hybscloud.com/ulfq/internal/logger"
	"code.hybscloud.com/ulfq/internal/soak"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const metricsReadHeaderTimeout = 3 * time.Second

type cmdConfig struct {
	producers    int
	consumers    int
	items        int
	rounds       int
	blocking     bool
	chunk        int
	loggerLevel  string
	prettyLogger bool
	metricsAddr  string
}

var config = &cmdConfig{}

var flags = []cli.Flag{
	&cli.IntFlag{
		Name:        "producers",
		Value:       runtime.NumCPU(),
		Usage:       "number of producer goroutines",
		Destination: &config.producers,
	},
	&cli.IntFlag{
		Name:        "consumers",
		Value:       runtime.NumCPU(),
		Usage:       "number of consumer goroutines",
		Destination: &config.consumers,
	},
	&cli.IntFlag{
		Name:        "items",
		Value:       100000,
		Usage:       "values enqueued by each producer per round",
		Destination: &config.items,
	},
	&cli.IntFlag{
		Name:        "rounds",
		Value:       10,
		Usage:       "number of rounds, 0 runs until interrupted",
		Destination: &config.rounds,
	},
	&cli.BoolFlag{
		Name:        "blocking",
		Value:       false,
		Usage:       "consumers park on the blocking queue instead of spinning",
		Destination: &config.blocking,
	},
	&cli.IntFlag{
		Name:        "chunk",
		Value:       ulfq.DefaultChunkSize,
		Usage:       "nodes in the first arena chunk",
		Destination: &config.chunk,
	},
	&cli.StringFlag{
		Name:        "loggerLevel",
		Value:       "info",
		Usage:       "logger level",
		Destination: &config.loggerLevel,
		Action: func(_ *cli.Context, v string) error {
			if !slices.Contains(logger.Levels, v) {
				return fmt.Errorf("possible values for logger level: %v", logger.Levels)
			}
			return nil
		},
	},
	&cli.BoolFlag{
		Name:        "prettyLogger",
		Value:       false,
		Usage:       "print prettier logs",
		Destination: &config.prettyLogger,
	},
	&cli.StringFlag{
		Name:        "metricsAddr",
		Value:       "",
		Usage:       "serve Prometheus metrics on this address, e.g. :9100",
		Destination: &config.metricsAddr,
	},
}

func run(c *cli.Context) error {
	level, err := logger.ParseLevel(config.loggerLevel)
	if err != nil {
		return err
	}
	log := logger.New(os.Stderr, "ulfqsoak", level, config.prettyLogger)

	cfg := soak.Config{
		Producers: config.producers,
		Consumers: config.consumers,
		Items:     config.items,
		Blocking:  config.blocking,
		ChunkSize: config.chunk,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	var metrics *soak.Metrics
	if config.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		if metrics, err = soak.NewMetrics(reg); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:              config.metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", config.metricsAddr).Msg("metrics server stopped")
			}
		}()
		defer server.Shutdown(context.Background())
		log.Info().Str("addr", config.metricsAddr).Msg("serving metrics")
	}

	for i := 0; config.rounds == 0 || i < config.rounds; i++ {
		if ctx.Err() != nil {
			break
		}
		rl := log.With().Int("round", i).Logger()
		if _, err := soak.Run(ctx, cfg, rl, metrics); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return err
		}
	}
	log.Info().Msg("soak finished")
	return nil
}

func main() {
	app := &cli.App{
		EnableBashCompletion: true,
		Flags:                flags,
		Name:                 "ulfqsoak",
		Usage:                "ulfq queue soak tester",
		Action:               run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
