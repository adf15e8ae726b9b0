package rabbitmq

import (
	"context"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes and dispatches messages until its context ends.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// QoS 1 for order snapshots and operator commands.
func qosFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "order/snapshot") || strings.HasPrefix(t, "order/command") {
		return 1
	}
	return 0
}

// MultiConsumer subscribes one handler to several topic filters.
type MultiConsumer struct {
	client  mqtt.Client
	topics  []string
	handler Handler
	log     *zap.Logger
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler Handler, log *zap.Logger) *MultiConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &MultiConsumer{client: client, topics: topics, handler: handler, log: log}
}

func (m *MultiConsumer) SetHandler(handler Handler) {
	m.handler = handler
}

// ConsumeMessage blocks until ctx is cancelled, then unsubscribes.
func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	subscribed := make([]string, 0, len(m.topics))
	for _, topic := range m.topics {
		topic := topic
		token := m.client.Subscribe(topic, qosFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
			if m.handler == nil {
				m.log.Warn("no handler set", zap.String("topic", topic))
				return
			}
			if err := m.handler(topic, msg); err != nil {
				m.log.Warn("error handling message", zap.String("topic", msg.Topic()), zap.Error(err))
			}
		})
		if token.Wait() && token.Error() != nil {
			m.log.Error("subscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
			continue
		}
		subscribed = append(subscribed, topic)
		m.log.Info("subscribed", zap.String("topic", topic))
	}

	<-ctx.Done()

	if len(subscribed) > 0 {
		m.client.Unsubscribe(subscribed...).Wait()
	}
}
