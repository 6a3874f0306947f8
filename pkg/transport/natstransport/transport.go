// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package natstransport publishes and subscribes to state.Update payloads
// over NATS, one subject per dataset. Supplements spec.md — the core
// itself is transport-agnostic, but a coupled run with model processes
// in separate binaries needs some wire transport between them; grounded
// on the teacher's pkg/nats/client.go connection/subscription management,
// narrowed to this package's one concern (move Updates, not arbitrary
// byte payloads) instead of that package's generic pub/sub API.
package natstransport

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/nhr-fau/simcore/pkg/codec"
	"github.com/nhr-fau/simcore/pkg/log"
	"github.com/nhr-fau/simcore/pkg/state"
)

// Config mirrors the teacher's NatsConfig shape: address plus either
// username/password or a credentials file.
type Config struct {
	Address       string `json:"address"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	CredsFilePath string `json:"creds-file-path"`
}

// subjectPrefix namespaces every subject this package publishes to or
// subscribes on, so a shared NATS server can carry unrelated traffic.
const subjectPrefix = "simcore.update."

// Transport wraps one NATS connection used to exchange per-dataset
// state.Update payloads, encoded with pkg/codec.
type Transport struct {
	conn          *nats.Conn
	subscriptions []*nats.Subscription
	mu            sync.Mutex
}

// Connect dials cfg.Address and returns a ready Transport.
func Connect(cfg Config) (*Transport, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("natstransport: address is required")
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("natstransport: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("natstransport: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Errorf("natstransport: error: %v", err)
		}),
	)

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("natstransport: connect failed: %w", err)
	}
	log.Infof("natstransport: connected to %s", cfg.Address)
	return &Transport{conn: nc}, nil
}

func subject(datasetName string) string {
	return subjectPrefix + datasetName
}

// PublishUpdate encodes and publishes one dataset's update, datasetType
// being the schema type name recorded alongside the payload.
func (t *Transport) PublishUpdate(datasetName, datasetType string, dsUpdate state.DatasetUpdate) error {
	payload, err := codec.EncodeUpdate(datasetName, datasetType, dsUpdate)
	if err != nil {
		return fmt.Errorf("natstransport: encoding update for %s: %w", datasetName, err)
	}
	if err := t.conn.Publish(subject(datasetName), payload); err != nil {
		return fmt.Errorf("natstransport: publishing to %s: %w", subject(datasetName), err)
	}
	return nil
}

// PublishAll publishes every dataset in update under its own subject.
func (t *Transport) PublishAll(update state.Update, datasetTypes map[string]string) error {
	for name, ds := range update.Datasets {
		if err := t.PublishUpdate(name, datasetTypes[name], ds); err != nil {
			return err
		}
	}
	return nil
}

// UpdateHandler receives one decoded dataset update.
type UpdateHandler func(datasetName string, update state.Update)

// SubscribeDataset subscribes to datasetName's subject, decoding each
// message with pkg/codec before invoking handler. Decode errors are
// logged and the message is dropped rather than propagated, since one
// malformed message must not kill the subscription.
func (t *Transport) SubscribeDataset(datasetName string, handler UpdateHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, err := t.conn.Subscribe(subject(datasetName), func(msg *nats.Msg) {
		name, update, err := codec.DecodeInitialDataset(msg.Data)
		if err != nil {
			log.Errorf("natstransport: decoding update on %s: %v", msg.Subject, err)
			return
		}
		handler(name, update)
	})
	if err != nil {
		return fmt.Errorf("natstransport: subscribing to %s: %w", subject(datasetName), err)
	}

	t.subscriptions = append(t.subscriptions, sub)
	log.Infof("natstransport: subscribed to %s", subject(datasetName))
	return nil
}

// Close unsubscribes everything and closes the connection.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, sub := range t.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			log.Warnf("natstransport: unsubscribe failed: %v", err)
		}
	}
	t.subscriptions = nil

	if t.conn != nil {
		t.conn.Close()
		log.Info("natstransport: connection closed")
	}
}
