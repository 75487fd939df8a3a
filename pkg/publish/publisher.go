// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package publish

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/config"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/tc36"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/thp"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

// Broker is the subset of the Redis client the publisher uses
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// Publisher sends every message to a pub/sub channel and keeps the most
// recent ones per device in a capped list
type Publisher struct {
	broker  Broker
	channel string
	keep    int64
	log     logrus.FieldLogger
}

// New wraps an existing broker. keep <= 0 disables the history lists.
func New(broker Broker, channel string, keep int64, log logrus.FieldLogger) *Publisher {
	return &Publisher{broker: broker, channel: channel, keep: keep, log: log}
}

// Dial connects to Redis as configured and checks the connection
func Dial(ctx context.Context, cfg config.RedisConfig, log logrus.FieldLogger) (*Publisher, func() error, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	log.WithField("addr", cfg.Addr).Info("redis connected")
	return New(client, cfg.Channel, cfg.ListLength, log), client.Close, nil
}

// HistoryKey is the list holding recent messages for kind
func HistoryKey(kind device.Kind) string {
	return "bench:" + kind.String() + ":history"
}

func (p *Publisher) send(ctx context.Context, kind device.Kind, data []byte) error {
	if err := p.broker.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if p.keep <= 0 {
		return nil
	}
	key := HistoryKey(kind)
	if err := p.broker.LPush(ctx, key, data).Err(); err != nil {
		p.log.WithError(err).WithField("key", key).Warn("history push failed")
		return nil
	}
	p.broker.LTrim(ctx, key, 0, p.keep-1)
	return nil
}

// Event publishes a status event
func (p *Publisher) Event(ctx context.Context, ev device.Event) error {
	data, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return p.send(ctx, ev.Device, data)
}

// IMU publishes an IMU snapshot
func (p *Publisher) IMU(ctx context.Context, v witmotion.Values) error {
	data, err := EncodeIMU(v)
	if err != nil {
		return err
	}
	return p.send(ctx, device.KindIMU, data)
}

// Temperature publishes a temperature controller poll
func (p *Publisher) Temperature(ctx context.Context, r tc36.Reading) error {
	data, err := EncodeTemperature(r)
	if err != nil {
		return err
	}
	return p.send(ctx, device.KindTemperature, data)
}

// Ambient publishes a box sensor reading
func (p *Publisher) Ambient(ctx context.Context, r thp.Reading) error {
	data, err := EncodeAmbient(r)
	if err != nil {
		return err
	}
	return p.send(ctx, device.KindAmbient, data)
}

// ForwardEvents subscribes to n and publishes each event until ctx is done.
// Publish failures are logged, never fatal.
func (p *Publisher) ForwardEvents(ctx context.Context, n *device.Notifier) <-chan struct{} {
	events, cancel := n.Subscribe(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				if err := p.Event(ctx, ev); err != nil {
					p.log.WithError(err).Warn("event not published")
				}
			}
		}
	}()
	return done
}
