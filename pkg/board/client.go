package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client provides workspace-scoped operations on the shared store.
// All keys and channels are automatically namespaced with the workspace.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	workspace string
	origin    string
}

// NewClient creates a new shared store client for the specified workspace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - workspace: board identifier (must not be empty)
//
// Every client gets a fresh session UUID that is stamped on its writes as the origin, so every
// change event names the session that wrote it.
func NewClient(redisOpts *redis.Options, workspace string) (*Client, error) {
	if workspace == "" {
		return nil, fmt.Errorf("workspace cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		workspace: workspace,
		origin:    uuid.New().String(),
	}, nil
}

// Workspace returns the workspace this client is scoped to.
func (c *Client) Workspace() string {
	return c.workspace
}

// Origin returns the session UUID stamped on every write made through this client.
func (c *Client) Origin() string {
	return c.origin
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// serverTimeMs reads the Redis server clock so every client stamps documents from the same clock.
func (c *Client) serverTimeMs(ctx context.Context) (int64, error) {
	t, err := c.rdb.Time(ctx).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read server time: %w", err)
	}
	return t.UnixMilli(), nil
}

// MergeCell merge-writes a cell document and publishes the written fields as a change event.
//
// Only the fields present on doc are written; fields already stored and absent from doc are
// left untouched. updated_at_ms is taken from the server clock and origin from this client.
// The hash write, the index update and the publish run in one MULTI/EXEC.
func (c *Client) MergeCell(ctx context.Context, doc *CellDocument) error {
	d := *doc
	d.Stage = d.Stage.Normalize()
	d.Origin = c.origin

	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid cell document: %w", err)
	}

	ts, err := c.serverTimeMs(ctx)
	if err != nil {
		return err
	}
	d.UpdatedAtMs = ts

	payload, err := json.Marshal(&d)
	if err != nil {
		return fmt.Errorf("failed to marshal cell event: %w", err)
	}

	docID := CellDocID(d.Key())
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, CellKeyName(c.workspace, docID), CellToHash(&d))
		pipe.SAdd(ctx, CellIndexKey(c.workspace), docID)
		pipe.Publish(ctx, CellEventsChannel(c.workspace), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to merge cell %s: %w", d.Key(), err)
	}

	return nil
}

// MergeMeta merge-writes a platform meta document and publishes the written fields.
func (c *Client) MergeMeta(ctx context.Context, doc *MetaDocument) error {
	d := *doc
	d.Origin = c.origin

	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid meta document: %w", err)
	}

	ts, err := c.serverTimeMs(ctx)
	if err != nil {
		return err
	}
	d.UpdatedAtMs = ts

	payload, err := json.Marshal(&d)
	if err != nil {
		return fmt.Errorf("failed to marshal meta event: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, MetaKeyName(c.workspace, d.Platform), MetaToHash(&d))
		pipe.SAdd(ctx, MetaIndexKey(c.workspace), d.Platform)
		pipe.Publish(ctx, MetaEventsChannel(c.workspace), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to merge meta for platform %s: %w", d.Platform, err)
	}

	return nil
}

// GetCell retrieves the stored document of a cell.
// Returns (nil, redis.Nil) if the cell was never written. Use IsNotFound() to check.
func (c *Client) GetCell(ctx context.Context, key CellKey) (*CellDocument, error) {
	hashData, err := c.rdb.HGetAll(ctx, CellKeyName(c.workspace, CellDocID(key))).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cell from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	doc, err := HashToCell(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize cell: %w", err)
	}

	return doc, nil
}

// GetMeta retrieves the stored meta document of a platform.
// Returns (nil, redis.Nil) if the platform has no meta document.
func (c *Client) GetMeta(ctx context.Context, platform string) (*MetaDocument, error) {
	hashData, err := c.rdb.HGetAll(ctx, MetaKeyName(c.workspace, platform)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read meta from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	doc, err := HashToMeta(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize meta: %w", err)
	}

	return doc, nil
}

// ListCells returns every cell document of the workspace.
// Index entries whose hash has disappeared are skipped.
func (c *Client) ListCells(ctx context.Context) ([]*CellDocument, error) {
	ids, err := c.rdb.SMembers(ctx, CellIndexKey(c.workspace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cell index: %w", err)
	}

	hashes, err := c.readHashes(ctx, ids, func(id string) string { return CellKeyName(c.workspace, id) })
	if err != nil {
		return nil, err
	}

	docs := make([]*CellDocument, 0, len(hashes))
	for _, hash := range hashes {
		doc, err := HashToCell(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize cell: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// ListMetas returns every platform meta document of the workspace.
func (c *Client) ListMetas(ctx context.Context) ([]*MetaDocument, error) {
	platforms, err := c.rdb.SMembers(ctx, MetaIndexKey(c.workspace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read meta index: %w", err)
	}

	hashes, err := c.readHashes(ctx, platforms, func(p string) string { return MetaKeyName(c.workspace, p) })
	if err != nil {
		return nil, err
	}

	docs := make([]*MetaDocument, 0, len(hashes))
	for _, hash := range hashes {
		doc, err := HashToMeta(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize meta: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// readHashes fetches several hashes in one pipeline, dropping empty ones.
func (c *Client) readHashes(ctx context.Context, ids []string, keyFor func(string) string) ([]map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, keyFor(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	hashes := make([]map[string]string, 0, len(cmds))
	for _, cmd := range cmds {
		hash := cmd.Val()
		if len(hash) == 0 {
			continue
		}
		hashes = append(hashes, hash)
	}

	return hashes, nil
}

// ClearWorkspace deletes every document and index of the workspace and returns how many
// documents were removed. No change events are published: deletes are not propagated.
func (c *Client) ClearWorkspace(ctx context.Context) (int, error) {
	cellIDs, err := c.rdb.SMembers(ctx, CellIndexKey(c.workspace)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read cell index: %w", err)
	}
	platforms, err := c.rdb.SMembers(ctx, MetaIndexKey(c.workspace)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read meta index: %w", err)
	}

	keys := make([]string, 0, len(cellIDs)+len(platforms)+2)
	for _, id := range cellIDs {
		keys = append(keys, CellKeyName(c.workspace, id))
	}
	for _, p := range platforms {
		keys = append(keys, MetaKeyName(c.workspace, p))
	}
	keys = append(keys, CellIndexKey(c.workspace), MetaIndexKey(c.workspace))

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete workspace documents: %w", err)
	}

	return len(cellIDs) + len(platforms), nil
}

// Subscription represents an active Pub/Sub subscription to one change feed.
// Caller must call Close() when done to clean up resources.
type Subscription[T any] struct {
	events <-chan *T
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of change events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription[T]) Events() <-chan *T {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures; the offending message is skipped.
func (s *Subscription[T]) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription[T]) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeCellEvents subscribes to cell change events for this workspace.
// The subscription is confirmed by Redis before this returns, so any write published afterwards
// is delivered.
func (c *Client) SubscribeCellEvents(ctx context.Context) (*Subscription[CellDocument], error) {
	return subscribe[CellDocument](ctx, c.rdb, CellEventsChannel(c.workspace), "cell")
}

// SubscribeMetaEvents subscribes to meta change events for this workspace.
func (c *Client) SubscribeMetaEvents(ctx context.Context) (*Subscription[MetaDocument], error) {
	return subscribe[MetaDocument](ctx, c.rdb, MetaEventsChannel(c.workspace), "meta")
}

// subscribe pumps JSON messages of one channel into a typed Subscription.
// Events are delivered on a buffered channel (size 10). Redis Pub/Sub is at-most-once: a
// subscriber that falls too far behind loses messages.
func subscribe[T any](ctx context.Context, rdb *redis.Client, channel, kind string) (*Subscription[T], error) {
	pubsub := rdb.Subscribe(ctx, channel)

	// Wait for the subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s events: %w", kind, err)
	}

	eventsChan := make(chan *T, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event T
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal %s event: %w", kind, err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription[T]{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetCell or GetMeta returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
