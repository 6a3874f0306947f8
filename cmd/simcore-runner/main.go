// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command simcore-runner demonstrates the core wired end to end: it loads
// a runner configuration, builds a Tracked State and an Update Codec
// around it, runs the rules model through a Model Adapter, and drives its
// lifecycle on a simclock tick until interrupted. Grounded on
// cmd/cc-backend/main.go's flag/config/gops/signal-handling shape,
// stripped to the pieces relevant to a single in-process model run.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"

	"github.com/nhr-fau/simcore/internal/simconfig"
	"github.com/nhr-fau/simcore/pkg/attrschema"
	"github.com/nhr-fau/simcore/pkg/initload"
	"github.com/nhr-fau/simcore/pkg/log"
	"github.com/nhr-fau/simcore/pkg/modeladapter"
	"github.com/nhr-fau/simcore/pkg/rules"
	"github.com/nhr-fau/simcore/pkg/simclock"
	"github.com/nhr-fau/simcore/pkg/state"
	"github.com/nhr-fau/simcore/pkg/transport/natstransport"
)

func main() {
	var flagConfigFile string
	var flagGops bool
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Runner configuration file")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := simconfig.Init(flagConfigFile); err != nil {
		log.Fatal(err)
	}
	cfg := simconfig.Keys

	backend, err := buildBackend(cfg.Datasets)
	if err != nil {
		log.Fatal(err)
	}
	loader, err := initload.New(backend, cfg.Datasets.Validate)
	if err != nil {
		log.Fatal(err)
	}

	model, err := buildModel(cfg.RulesPath)
	if err != nil {
		log.Fatal(err)
	}

	timeline, err := cfg.Timeline.ToTimelineInfo()
	if err != nil {
		log.Fatal(err)
	}

	s := state.New(state.Options{})
	schema := attrschema.New(0)
	adapter := modeladapter.New(model, s, schema, nil, timeline)

	ctx := context.Background()
	if err := adapter.Setup(ctx, loader); err != nil {
		log.Fatal(err)
	}
	if _, err := adapter.Initialize(loader); err != nil {
		log.Fatal(err)
	}
	if !adapter.IsInitialized() {
		log.Fatal("simcore-runner: model did not become ready for INITIALIZE from the configured datasets")
	}

	var transport *natstransport.Transport
	if cfg.Nats != nil {
		transport, err = natstransport.Connect(*cfg.Nats)
		if err != nil {
			log.Fatal(err)
		}
		defer transport.Close()
	}

	clock, err := simclock.New(adapter, cfg.TickIntervalDuration(), cfg.TickStep)
	if err != nil {
		log.Fatal(err)
	}
	if err := clock.Start(cfg.TickIntervalDuration()); err != nil {
		log.Fatal(err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := clock.Shutdown(); err != nil {
		log.Warnf("simcore-runner: clock shutdown: %v", err)
	}
	if err := adapter.Close(false); err != nil {
		log.Warnf("simcore-runner: model shutdown: %v", err)
	}
	log.Info("simcore-runner: graceful shutdown completed")
}

func buildBackend(cfg simconfig.DatasetSource) (initload.Backend, error) {
	if cfg.Kind == "s3" {
		return initload.NewS3Backend(context.Background(), *cfg.S3)
	}
	return initload.NewFSBackend(cfg.Path), nil
}

func buildModel(rulesPath string) (modeladapter.Model, error) {
	if rulesPath == "" {
		return rules.New(rules.Config{}), nil
	}
	raw, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, err
	}
	cfg, err := rules.ParseConfig(raw)
	if err != nil {
		return nil, err
	}
	return rules.New(cfg), nil
}
