/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mqtt is the broker connection: it feeds inbound device topics to
// an ingest handler and publishes OTA commands.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mfreeman451/firmwave/pkg/config"
	"github.com/mfreeman451/firmwave/pkg/ingest"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
)

const (
	// OTATopicPrefix is followed by a device MAC, or by OTABroadcast.
	OTATopicPrefix = "esp32/ota/"
	OTABroadcast   = "all"

	qosAtLeastOnce    byte = 1
	disconnectQuiesce      = 250 // milliseconds
	connectRetryDelay      = 5 * time.Second
)

// OTATopic returns the command topic for one device, or the broadcast topic
// when mac is empty.
func OTATopic(mac string) string {
	if mac == "" {
		return OTATopicPrefix + OTABroadcast
	}

	return OTATopicPrefix + mac
}

// Client owns the paho connection. Reconnection is left to paho and never
// gives up; only the logging of attempts is capped.
type Client struct {
	cfg     *config.MQTTConfig
	topics  []string
	handler ingest.Handler
	logger  logger.Logger

	mu        sync.RWMutex
	client    paho.Client
	ctx       context.Context
	cancel    context.CancelFunc
	newClient func(*paho.ClientOptions) paho.Client

	reconnects atomic.Int64
}

func New(cfg *config.MQTTConfig, topics []string, handler ingest.Handler, log logger.Logger) *Client {
	return &Client{
		cfg:       cfg,
		topics:    topics,
		handler:   handler,
		logger:    log.WithComponent("mqtt"),
		newClient: paho.NewClient,
	}
}

// Start connects to the broker. When the broker is not reachable within
// the connect timeout Start returns nil and paho keeps retrying in the
// background; subscriptions are made on every successful connect.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()

	if c.client != nil {
		c.mu.Unlock()

		return errAlreadyStarted
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	client := c.newClient(c.options())
	c.client = client

	c.mu.Unlock()

	c.logger.Info().Str("broker", c.cfg.BrokerURL).Str("client_id", c.cfg.ClientID).Msg("Connecting to MQTT broker")

	token := client.Connect()
	if !token.WaitTimeout(time.Duration(c.cfg.ConnectTimeout)) {
		c.logger.Warn().
			Str("broker", c.cfg.BrokerURL).
			Dur("timeout", time.Duration(c.cfg.ConnectTimeout)).
			Msg("MQTT broker not reachable yet, retrying in background")

		return nil
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w %s: %w", errConnectFailed, c.cfg.BrokerURL, err)
	}

	return nil
}

// Stop disconnects and cancels in-flight message handling.
func (c *Client) Stop(_ context.Context) error {
	c.mu.Lock()
	client, cancel := c.client, c.cancel
	c.mu.Unlock()

	if client != nil {
		client.Disconnect(disconnectQuiesce)
	}

	if cancel != nil {
		cancel()
	}

	c.logger.Info().Msg("MQTT client stopped")

	return nil
}

func (c *Client) IsConnected() bool {
	client := c.current()

	return client != nil && client.IsConnected()
}

// PublishOTA sends an OTA command at QoS 1 and waits for the broker to
// acknowledge it, or for ctx to end.
func (c *Client) PublishOTA(ctx context.Context, mac string, cmd *models.OTACommand) error {
	client := c.current()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%w: %w", errMarshalCommand, err)
	}

	topic := OTATopic(mac)
	token := client.Publish(topic, qosAtLeastOnce, false, payload)

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w %s: %w", errPublishFailed, topic, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("%w %s: %w", errPublishFailed, topic, ctx.Err())
	}

	c.logger.Info().Str("topic", topic).Str("version", cmd.Version).Msg("OTA command published")

	return nil
}

func (c *Client) current() paho.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client
}

func (c *Client) baseContext() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ctx == nil {
		return context.Background()
	}

	return c.ctx
}

func (c *Client) options() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.cfg.BrokerURL)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetUsername(c.cfg.Username)
	opts.SetPassword(c.cfg.Password)
	opts.SetKeepAlive(time.Duration(c.cfg.KeepAlive))
	opts.SetConnectTimeout(time.Duration(c.cfg.ConnectTimeout))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(connectRetryDelay)
	opts.SetMaxReconnectInterval(time.Duration(c.cfg.MaxReconnectInterval))
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)
	opts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		c.logger.Warn().Str("topic", msg.Topic()).Msg("Received message on unexpected topic")
	})

	return opts
}

func (c *Client) onConnect(client paho.Client) {
	c.reconnects.Store(0)

	c.logger.Info().Str("broker", c.cfg.BrokerURL).Msg("Connected to MQTT broker")

	filters := make(map[string]byte, len(c.topics))
	for _, topic := range c.topics {
		filters[topic] = qosAtLeastOnce
	}

	token := client.SubscribeMultiple(filters, c.onMessage)
	if token.Wait() && token.Error() != nil {
		c.logger.Error().Err(token.Error()).Strs("topics", c.topics).Msg("Failed to subscribe to device topics")

		return
	}

	c.logger.Info().Strs("topics", c.topics).Msg("Subscribed to device topics")
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn().Err(err).Msg("Lost connection to MQTT broker")
}

func (c *Client) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	attempt := c.reconnects.Add(1)
	limit := int64(c.cfg.MaxReconnectLogs)

	switch {
	case attempt <= limit:
		c.logger.Info().Int64("attempt", attempt).Msg("Reconnecting to MQTT broker")
	case attempt == limit+1:
		c.logger.Warn().
			Int64("attempts", limit).
			Msg("Still reconnecting to MQTT broker; further attempts will not be logged")
	}
}

// onMessage runs on a paho goroutine. A failing or panicking handler must
// not reach paho, which would drop the connection.
func (c *Client) onMessage(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()

	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error().
				Err(fmt.Errorf("%w: %v", errMessagePanicked, rec)).
				Str("topic", topic).
				Msg("Recovered from panic while handling MQTT message")
		}
	}()

	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	c.logger.Debug().Str("topic", topic).Int("payload_size", len(payload)).Msg("Received MQTT message")

	// The handler logs its own failures.
	_ = c.handler.HandleMessage(c.baseContext(), topic, payload)
}
