// Package subscriber feeds the change stream of a workspace into a Sink.
package subscriber

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dyluth/tablero/internal/logging"
	"github.com/dyluth/tablero/pkg/board"
)

// Source is the shared store seen from the subscriber. *board.Client implements it.
type Source interface {
	SubscribeCellEvents(ctx context.Context) (*board.Subscription[board.CellDocument], error)
	SubscribeMetaEvents(ctx context.Context) (*board.Subscription[board.MetaDocument], error)
	ListCells(ctx context.Context) ([]*board.CellDocument, error)
	ListMetas(ctx context.Context) ([]*board.MetaDocument, error)
}

// Sink receives changes. *reconcile.Engine implements it.
type Sink interface {
	ApplyRemoteCellChange(doc *board.CellDocument) error
	ApplyRemoteMetaChange(doc *board.MetaDocument) error
}

// Options configures a Subscriber.
type Options struct {
	Logger *slog.Logger

	// SkipSnapshot starts with live events only, without replaying the stored documents.
	SkipSnapshot bool
}

// Subscriber delivers the stored documents of a workspace and then its live changes, in arrival
// order, to a Sink. Writes made by this process are delivered too: the feed carries the order in
// which the store applied them, and only replaying that order keeps memory equal to the store
// when two writers race.
type Subscriber struct {
	source Source
	sink   Sink
	opts   Options
	logger *slog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// New creates a Subscriber. Nothing happens until Run is called.
func New(source Source, sink Sink, opts Options) *Subscriber {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Subscriber{
		source: source,
		sink:   sink,
		opts:   opts,
		logger: logger.With("component", "subscriber"),
		ready:  make(chan struct{}),
	}
}

// Ready is closed once both feeds are subscribed and the snapshot has been delivered.
func (s *Subscriber) Ready() <-chan struct{} {
	return s.ready
}

// Run subscribes to both feeds and delivers events until ctx is done or a feed closes.
// The feeds are subscribed before the snapshot is read, so no write falls between the two.
// A lost connection is not retried: Run returns and the caller decides.
func (s *Subscriber) Run(ctx context.Context) error {
	cellSub, err := s.source.SubscribeCellEvents(ctx)
	if err != nil {
		return err
	}
	defer cellSub.Close()

	metaSub, err := s.source.SubscribeMetaEvents(ctx)
	if err != nil {
		return err
	}
	defer metaSub.Close()

	if !s.opts.SkipSnapshot {
		if err := s.Replay(ctx); err != nil {
			return err
		}
	}

	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("Subscribed to change feeds")

	cellErrs, metaErrs := cellSub.Errors(), metaSub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case doc, ok := <-cellSub.Events():
			if !ok {
				return s.closed(ctx, "cell")
			}
			s.deliverCell(doc)

		case doc, ok := <-metaSub.Events():
			if !ok {
				return s.closed(ctx, "meta")
			}
			s.deliverMeta(doc)

		case err, ok := <-cellErrs:
			if !ok {
				cellErrs = nil
				continue
			}
			s.logger.Warn("Cell feed error", "error", err)

		case err, ok := <-metaErrs:
			if !ok {
				metaErrs = nil
				continue
			}
			s.logger.Warn("Meta feed error", "error", err)
		}
	}
}

func (s *Subscriber) closed(ctx context.Context, kind string) error {
	if ctx.Err() != nil {
		return nil
	}
	s.logger.Warn("Change feed closed", "feed", kind)
	return fmt.Errorf("%s feed closed", kind)
}

// Replay delivers every stored document as if it had just been created. Run calls it after
// subscribing; one-shot commands call it alone to bring the local board up to date.
func (s *Subscriber) Replay(ctx context.Context) error {
	cells, err := s.source.ListCells(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cell snapshot: %w", err)
	}
	metas, err := s.source.ListMetas(ctx)
	if err != nil {
		return fmt.Errorf("failed to read meta snapshot: %w", err)
	}

	for _, doc := range cells {
		s.deliverCell(doc)
	}
	for _, doc := range metas {
		s.deliverMeta(doc)
	}

	s.logger.Info("Replayed snapshot", "cells", len(cells), "metas", len(metas))
	return nil
}

func (s *Subscriber) deliverCell(doc *board.CellDocument) {
	if err := s.sink.ApplyRemoteCellChange(doc); err != nil {
		s.logDiscard("cell", err)
	}
}

func (s *Subscriber) deliverMeta(doc *board.MetaDocument) {
	if err := s.sink.ApplyRemoteMetaChange(doc); err != nil {
		s.logDiscard("meta", err)
	}
}

func (s *Subscriber) logDiscard(kind string, err error) {
	s.logger.Warn("Discarded remote change", "kind", kind, "error", err)
}
