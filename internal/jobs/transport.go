// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package jobs

import (
	"fmt"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/logging"
)

// Transport bundles the publisher/subscriber pair the pipeline runs over,
// plus whatever needs shutting down behind them.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	embedded *server.Server
}

// Topic maps a logical topic to the transport-specific one.
func (t *Transport) Topic(cfg *config.QueueConfig, topic string) string {
	if cfg.Transport == "nats" && cfg.SubjectPrefix != "" {
		return cfg.SubjectPrefix + "." + topic
	}
	return topic
}

// Close shuts the transport down, embedded server last.
func (t *Transport) Close() error {
	err := t.Publisher.Close()
	if subErr := t.Subscriber.Close(); err == nil {
		err = subErr
	}
	if t.embedded != nil {
		t.embedded.Shutdown()
		t.embedded.WaitForShutdown()
	}
	return err
}

// NewTransport builds the configured queue transport. The channel transport
// is a single-process in-memory queue; nats connects to an external or
// embedded JetStream server.
func NewTransport(cfg *config.QueueConfig) (*Transport, error) {
	logger := newWatermillLogger()

	switch cfg.Transport {
	case "channel":
		channel := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger)
		return &Transport{Publisher: channel, Subscriber: channel}, nil

	case "nats":
		return newNATSTransport(cfg)

	default:
		return nil, fmt.Errorf("unknown queue transport %q", cfg.Transport)
	}
}

func newNATSTransport(cfg *config.QueueConfig) (*Transport, error) {
	logger := newWatermillLogger()

	url := cfg.NATSURL
	var embedded *server.Server
	if cfg.EmbeddedServer {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		embedded = ns
		url = ns.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		QueueGroupPrefix: cfg.QueueGroup,
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverNew(),
				natsgo.AckWait(90 * time.Second),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	return &Transport{Publisher: pub, Subscriber: sub, embedded: embedded}, nil
}

// startEmbeddedServer boots an in-process JetStream server for
// single-instance deployments without external infrastructure.
func startEmbeddedServer(cfg *config.QueueConfig) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "resonate-jobs",
		Host:       "127.0.0.1",
		Port:       -1, // random free port
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoLog:      true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded nats server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready within timeout")
	}
	logging.Info().Str("url", ns.ClientURL()).Msg("embedded nats server ready")
	return ns, nil
}

func shutdownEmbedded(ns *server.Server) {
	if ns == nil {
		return
	}
	ns.Shutdown()
	ns.WaitForShutdown()
}
