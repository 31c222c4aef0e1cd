// Package remote reads roster and profile documents from the hosted document database.
package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// Fetcher retrieves a single named document.
type Fetcher interface {
	FetchCollection(ctx context.Context, name string) (map[string]interface{}, error)
}

// documentReader is the minimal surface of an initialised backend client.
type documentReader interface {
	Document(ctx context.Context, collection, name string) (map[string]interface{}, bool, error)
	Close() error
}

type connectFunc func(ctx context.Context) (documentReader, error)

// Client lazily connects on first use and reuses the connection afterwards.
type Client struct {
	collection string
	timeout    time.Duration
	connect    connectFunc
	logger     *zap.Logger

	mu     sync.Mutex
	reader documentReader
}

func newClient(collection string, timeout time.Duration, connect connectFunc, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{collection: collection, timeout: timeout, connect: connect, logger: logger}
}

// FetchCollection returns the decoded document or nil when it does not exist.
func (c *Client) FetchCollection(ctx context.Context, name string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reader, err := c.ensure(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, "failed to connect to remote roster")
	}

	data, exists, err := reader.Document(ctx, c.collection, name)
	if err != nil {
		c.logger.Warn("remote fetch failed", zap.String("collection", c.collection), zap.String("document", name), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, fmt.Sprintf("failed to fetch %s", name))
	}
	if !exists {
		return nil, nil
	}
	return data, nil
}

// ensure holds the lock across connect so concurrent first callers share one attempt.
// A failed attempt is not cached; the next call tries again.
func (c *Client) ensure(ctx context.Context) (documentReader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader != nil {
		return c.reader, nil
	}
	reader, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.reader = reader
	c.logger.Info("remote client initialised", zap.String("collection", c.collection))
	return reader, nil
}

// Close releases the underlying client when one was established.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == nil {
		return nil
	}
	err := c.reader.Close()
	c.reader = nil
	return err
}
