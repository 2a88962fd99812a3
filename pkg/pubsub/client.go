// Package pubsub is the Google Pub/Sub transport for the outbox publisher.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bazar-market/bazar-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("at least one pubsub topic is required")
	errClosed            = errors.New("pubsub client not initialized")
)

// Client publishes outbox envelopes. Publishers are created lazily per topic and
// stopped on Close so buffered messages flush.
type Client struct {
	api     *pubsub.Client
	project string
	topics  []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and fails unless every topic already exists. Topics are
// provisioned by infrastructure, never created here.
func NewClient(ctx context.Context, projectID string, topics []string, logg *logger.Logger) (*Client, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	resources := make([]string, 0, len(topics))
	for _, t := range topics {
		if name := TopicResourceName(projectID, t); name != "" {
			resources = append(resources, name)
		}
	}
	if len(resources) == 0 {
		return nil, errNoTopics
	}

	api, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{api: api, project: projectID, topics: resources, publishers: map[string]*pubsub.Publisher{}}
	if err := c.Ping(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", resources), "pubsub client initialized")
	}
	return c, nil
}

// Ping checks that every configured topic is reachable and reports all that are not.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errClosed
	}
	var errs error
	for _, topic := range c.topics {
		_, err := c.api.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic})
		switch {
		case err == nil:
		case status.Code(err) == codes.NotFound:
			errs = multierr.Append(errs, fmt.Errorf("topic %s does not exist", topic))
		default:
			errs = multierr.Append(errs, fmt.Errorf("checking topic %s: %w", topic, err))
		}
	}
	return errs
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.api == nil {
		return nil, errClosed
	}
	name := TopicResourceName(c.project, topic)
	if name == "" {
		return nil, fmt.Errorf("pubsub topic %q not configured", topic)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.publishers[name]
	if !ok {
		p = c.api.Publisher(name)
		c.publishers[name] = p
	}
	return p, nil
}

// Publish blocks until the server acks. Topics are unordered, so the key only travels
// as the "key" attribute for consumers that want it.
func (c *Client) Publish(ctx context.Context, topic, key string, data []byte, attrs map[string]string) error {
	p, err := c.publisher(topic)
	if err != nil {
		return err
	}
	if key != "" {
		merged := make(map[string]string, len(attrs)+1)
		for k, v := range attrs {
			merged[k] = v
		}
		merged["key"] = key
		attrs = merged
	}
	if _, err := p.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.api.Close()
}

// TopicResourceName expands a bare topic id into projects/<p>/topics/<id>.
// Fully qualified names pass through untouched.
func TopicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + name
}
