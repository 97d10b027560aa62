package opencloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/projectamerika/mayflower/internal/metrics"
	"go.uber.org/zap"
)

// MaxMessageSize is the largest message the messaging service accepts.
const MaxMessageSize = 1024

// Messaging publishes messages to universe topics consumed by game servers.
type Messaging struct {
	client  *Client
	baseURL string
	logger  *zap.Logger
}

// NewMessaging creates a messaging API client rooted at baseURL.
func NewMessaging(client *Client, baseURL string) *Messaging {
	return &Messaging{
		client:  client,
		baseURL: baseURL,
		logger:  client.logger.Named("messaging"),
	}
}

// Publish sends payload, encoded as JSON, to topic.
// Delivery is at most once and unacknowledged; an error only means the
// service did not accept the message.
func (m *Messaging) Publish(ctx context.Context, topic string, payload any) error {
	err := m.publish(ctx, topic, payload)

	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}

	metrics.Publishes.WithLabelValues(topic, result).Inc()

	return err
}

func (m *Messaging) publish(ctx context.Context, topic string, payload any) error {
	message, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message for %s: %w", topic, err)
	}

	if len(message) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(message))
	}

	body, err := sonic.Marshal(map[string]string{"message": string(message)})
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", topic, err)
	}

	endpoint := m.baseURL + "/universes/" + strconv.FormatUint(m.client.universeID, 10) +
		"/topics/" + url.PathEscape(topic)

	resp, err := m.client.do(ctx, http.MethodPost, endpoint, body, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return err
	}

	if resp.status != http.StatusOK {
		return statusError(resp)
	}

	m.logger.Debug("Published message",
		zap.String("topic", topic),
		zap.Int("size", len(message)))

	return nil
}
