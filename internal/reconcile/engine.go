// Package reconcile owns the in-memory board of one workspace and keeps it in step with the local
// cache and the shared store.
//
// Local edits are applied to memory and written through to the cache synchronously, then pushed
// to the shared store in the background. Remote changes are merged field by field into memory,
// written to the cache and announced to the View. Conflicts resolve as last write wins: whichever
// change is applied last overwrites the field.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/tablero/internal/cache"
	"github.com/dyluth/tablero/internal/logging"
	"github.com/dyluth/tablero/internal/metrics"
	"github.com/dyluth/tablero/internal/schema"
	"github.com/dyluth/tablero/internal/writer"
	"github.com/dyluth/tablero/pkg/board"
	"github.com/jonboulle/clockwork"
)

// ErrMalformedChange is returned by the Apply methods for a change that cannot be addressed to a
// cell or platform. Nothing of such a change is applied.
var ErrMalformedChange = errors.New("malformed change")

// Store is the part of the shared store the engine pushes to. *board.Client implements it.
type Store interface {
	MergeCell(ctx context.Context, doc *board.CellDocument) error
	MergeMeta(ctx context.Context, doc *board.MetaDocument) error
}

// View is notified after the board changes.
//
// Callbacks are made one at a time and in mutation order. They may read from the engine but
// must not mutate it.
type View interface {
	// RefreshCell is called after the status or comment of a cell changed.
	RefreshCell(key board.CellKey)

	// RefreshMeta is called after a remote change to a platform's meta fields, once per field.
	RefreshMeta(platform string, field board.MetaField)

	// Focused reports whether the user is currently editing the field. Focused fields are not
	// refreshed so a remote change never replaces text being typed.
	Focused(platform string, field board.MetaField) bool
}

// NopView ignores every notification.
type NopView struct{}

func (NopView) RefreshCell(board.CellKey)            {}
func (NopView) RefreshMeta(string, board.MetaField)  {}
func (NopView) Focused(string, board.MetaField) bool { return false }

// Options configures an Engine.
type Options struct {
	Workspace string
	Store     Store
	Cache     *cache.Store

	// Optional
	View         View
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Clock        clockwork.Clock
	MetaDebounce time.Duration
	PushTimeout  time.Duration
}

// Engine is the board of one workspace. It is safe for concurrent use; every mutation is
// serialized.
type Engine struct {
	workspace string
	store     Store
	cache     *cache.Store
	view      View
	logger    *slog.Logger
	metrics   *metrics.Metrics
	writer    *writer.Writer

	mu       sync.Mutex
	status   board.StatusMatrix
	comments board.CommentMatrix
	meta     board.MetaMatrix

	// viewMu is taken before mu is released so notifications keep mutation order
	viewMu sync.Mutex
}

// New creates the engine and loads the cached board. Pushes run under ctx.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Workspace == "" {
		return nil, fmt.Errorf("workspace cannot be empty")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if opts.View == nil {
		opts.View = NopView{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	e := &Engine{
		workspace: opts.Workspace,
		store:     opts.Store,
		cache:     opts.Cache,
		view:      opts.View,
		logger:    opts.Logger.With("component", "engine", "workspace", opts.Workspace),
		metrics:   opts.Metrics,
	}

	e.writer = writer.New(ctx, writer.Options{
		Clock:       opts.Clock,
		QuietPeriod: opts.MetaDebounce,
		Timeout:     opts.PushTimeout,
		Policy:      writer.NoRetry,
		OnResult:    e.onPushResult,
		OnCoalesced: func(writer.Key) { e.metrics.Coalesced() },
	})

	e.load()
	return e, nil
}

// load reads the three cached records. Unreadable records start empty.
func (e *Engine) load() {
	e.status = board.StatusMatrix{}
	e.comments = board.CommentMatrix{}
	e.meta = board.MetaMatrix{}

	if raw, ok := e.loadRecord(cache.RecordStatus); ok {
		var report schema.Report
		e.status, report = schema.DecodeStatus(raw)
		e.logReport(cache.RecordStatus, report)
	}
	if raw, ok := e.loadRecord(cache.RecordComments); ok {
		var report schema.Report
		e.comments, report = schema.DecodeComments(raw)
		e.logReport(cache.RecordComments, report)
	}
	if raw, ok := e.loadRecord(cache.RecordMeta); ok {
		var report schema.Report
		e.meta, report = schema.DecodeMeta(raw)
		e.logReport(cache.RecordMeta, report)
	}
}

func (e *Engine) loadRecord(r cache.Record) ([]byte, bool) {
	raw, err := e.cache.Load(r)
	if err != nil {
		e.logger.Warn("Cache record unreadable, starting empty", "record", r, "error", err)
		return nil, false
	}
	return raw, raw != nil
}

func (e *Engine) logReport(r cache.Record, report schema.Report) {
	if report.Clean() {
		return
	}
	e.logger.Info("Normalized cached record",
		"record", r,
		"corrupt", report.Corrupt,
		"upgraded", report.Upgraded,
		"dropped", report.Dropped)
}

// Status returns the status of a cell, StatusNone if it was never set.
func (e *Engine) Status(item, platform string, stage board.Stage) board.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status[item][platform].Get(stage)
}

// Comment returns the comment of a cell, "" if it was never set.
func (e *Engine) Comment(item, platform string, stage board.Stage) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, _ := e.comments[item][platform].Get(stage)
	return v
}

// Meta returns the meta fields of a platform, all "" if never set.
func (e *Engine) Meta(platform string) board.PlatformMeta {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta[platform]
}

// Snapshot is a deep copy of the board.
type Snapshot struct {
	Status   board.StatusMatrix
	Comments board.CommentMatrix
	Meta     board.MetaMatrix
}

// Snapshot returns a copy of the whole board that the caller may keep.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Status:   make(board.StatusMatrix, len(e.status)),
		Comments: make(board.CommentMatrix, len(e.comments)),
		Meta:     make(board.MetaMatrix, len(e.meta)),
	}
	for item, row := range e.status {
		s.Status[item] = make(map[string]board.StagedStatus, len(row))
		for platform, v := range row {
			s.Status[item][platform] = v
		}
	}
	for item, row := range e.comments {
		s.Comments[item] = make(map[string]board.StagedComment, len(row))
		for platform, v := range row {
			var c board.StagedComment
			for _, stage := range board.Stages {
				if text, ok := v.Get(stage); ok {
					c = c.With(stage, text)
				}
			}
			s.Comments[item][platform] = c
		}
	}
	for platform, m := range e.meta {
		s.Meta[platform] = m
	}
	return s
}

func validateCell(item, platform string, stage board.Stage) (board.CellKey, error) {
	if item == "" || platform == "" {
		return board.CellKey{}, fmt.Errorf("item and platform are required")
	}
	if err := stage.Validate(); err != nil {
		return board.CellKey{}, err
	}
	return board.CellKey{Item: item, Platform: platform, Stage: stage.Normalize()}, nil
}

// SetLocalStatus sets the status of a cell, persists it and pushes it to the shared store.
// Any value is accepted; values outside the enum are stored as-is.
func (e *Engine) SetLocalStatus(item, platform string, stage board.Stage, value board.Status) (*writer.Task, error) {
	key, err := validateCell(item, platform, stage)
	if err != nil {
		return nil, err
	}
	value = value.OrNone()

	e.mu.Lock()
	e.setStatus(key, value)
	e.saveStatus()
	e.metrics.LocalMutation("status")

	doc := &board.CellDocument{
		Platform: key.Platform,
		Item:     key.Item,
		Stage:    key.Stage,
		Status:   board.StringPtr(string(value)),
	}
	task := e.writer.Push(cellPushKey(key, "status"), e.pushCell(doc))

	e.unlockAndNotify(func(v View) { v.RefreshCell(key) })
	return task, nil
}

// SetLocalComment sets the comment of a cell. Surrounding whitespace is trimmed; an empty comment
// is stored as such and is distinct from a comment that was never set.
func (e *Engine) SetLocalComment(item, platform string, stage board.Stage, text string) (*writer.Task, error) {
	key, err := validateCell(item, platform, stage)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)

	e.mu.Lock()
	e.setComment(key, text)
	e.saveComments()
	e.metrics.LocalMutation("comment")

	doc := &board.CellDocument{
		Platform: key.Platform,
		Item:     key.Item,
		Stage:    key.Stage,
		Comment:  board.StringPtr(text),
	}
	task := e.writer.Push(cellPushKey(key, "comment"), e.pushCell(doc))

	e.unlockAndNotify(func(v View) { v.RefreshCell(key) })
	return task, nil
}

// SetLocalMeta sets one meta field of a platform. The push is debounced per (platform, field)
// so typing does not flood the shared store. The view is not refreshed: the edit came from it.
func (e *Engine) SetLocalMeta(platform string, field board.MetaField, value string) (*writer.Task, error) {
	if platform == "" {
		return nil, fmt.Errorf("platform is required")
	}
	if err := field.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.meta[platform] = e.meta[platform].With(field, value)
	e.saveMeta()
	e.metrics.LocalMutation("meta")

	doc := &board.MetaDocument{Platform: platform}
	doc.SetField(field, value)

	key := writer.Key{Kind: writer.KindMeta, Entity: platform, Field: string(field)}
	return e.writer.Schedule(key, func(ctx context.Context) error {
		return e.store.MergeMeta(ctx, doc)
	}), nil
}

// ApplyRemoteCellChange merges a cell change received from the shared store.
// Only the fields present on doc are merged; the others keep their current value.
func (e *Engine) ApplyRemoteCellChange(doc *board.CellDocument) error {
	if doc == nil || doc.Platform == "" || doc.Item == "" {
		e.metrics.RemoteChange("cell", metrics.OutcomeDiscarded)
		return fmt.Errorf("%w: cell change without platform or item", ErrMalformedChange)
	}
	if err := doc.Stage.Validate(); err != nil {
		e.metrics.RemoteChange("cell", metrics.OutcomeDiscarded)
		return fmt.Errorf("%w: %v", ErrMalformedChange, err)
	}
	key := doc.Key()

	e.mu.Lock()
	if doc.Status != nil {
		e.setStatus(key, board.Status(*doc.Status).OrNone())
		e.saveStatus()
	}
	if doc.Comment != nil {
		e.setComment(key, *doc.Comment)
		e.saveComments()
	}
	e.metrics.RemoteChange("cell", metrics.OutcomeApplied)
	e.logger.Debug("Applied remote cell change",
		"cell", key.String(),
		"status", doc.Status != nil,
		"comment", doc.Comment != nil,
		"updated_at_ms", doc.UpdatedAtMs)

	e.unlockAndNotify(func(v View) { v.RefreshCell(key) })
	return nil
}

// ApplyRemoteMetaChange merges a platform meta change received from the shared store.
// A legacy "etapa" value fills etapaActual when that is still empty after the merge.
// Every field is refreshed on the view except the ones the user is editing.
func (e *Engine) ApplyRemoteMetaChange(doc *board.MetaDocument) error {
	if doc == nil || doc.Platform == "" {
		e.metrics.RemoteChange("meta", metrics.OutcomeDiscarded)
		return fmt.Errorf("%w: meta change without platform", ErrMalformedChange)
	}
	platform := doc.Platform

	e.mu.Lock()
	m := e.meta[platform]
	for _, f := range board.MetaFields {
		if v, ok := doc.Field(f); ok {
			m = m.With(f, v)
		}
	}
	if doc.Etapa != nil && m.EtapaActual == "" {
		m.EtapaActual = *doc.Etapa
	}
	e.meta[platform] = m
	e.saveMeta()
	e.metrics.RemoteChange("meta", metrics.OutcomeApplied)
	e.logger.Debug("Applied remote meta change", "platform", platform, "updated_at_ms", doc.UpdatedAtMs)

	e.unlockAndNotify(func(v View) {
		for _, f := range board.MetaFields {
			if v.Focused(platform, f) {
				continue
			}
			v.RefreshMeta(platform, f)
		}
	})
	return nil
}

// Reset empties the board and the local cache. The shared store and pending pushes are left alone.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status = board.StatusMatrix{}
	e.comments = board.CommentMatrix{}
	e.meta = board.MetaMatrix{}

	if err := e.cache.Clear(); err != nil {
		e.logger.Warn("Failed to clear local cache", "error", err)
	}
	e.logger.Info("Board reset")
}

// Flush sends every debounced push now and waits for all pushes to finish.
func (e *Engine) Flush() {
	e.writer.Flush()
	e.writer.Wait()
}

// PendingPushes returns the number of debounced pushes not yet sent.
func (e *Engine) PendingPushes() int {
	return e.writer.Pending()
}

// Close sends pending pushes and waits for them. The store and the cache are not closed.
func (e *Engine) Close() {
	e.writer.Close()
}

// unlockAndNotify releases mu and runs fn against the view. Must be called with mu held.
func (e *Engine) unlockAndNotify(fn func(View)) {
	e.viewMu.Lock()
	e.mu.Unlock()
	defer e.viewMu.Unlock()
	fn(e.view)
}

func (e *Engine) setStatus(key board.CellKey, value board.Status) {
	row := e.status[key.Item]
	if row == nil {
		row = make(map[string]board.StagedStatus)
		e.status[key.Item] = row
	}
	row[key.Platform] = row[key.Platform].With(key.Stage, value)
}

func (e *Engine) setComment(key board.CellKey, text string) {
	row := e.comments[key.Item]
	if row == nil {
		row = make(map[string]board.StagedComment)
		e.comments[key.Item] = row
	}
	row[key.Platform] = row[key.Platform].With(key.Stage, text)
}

// Cache writes never fail a mutation: memory stays authoritative and the next save retries.

func (e *Engine) saveStatus() {
	if err := e.cache.SaveStatus(e.status); err != nil {
		e.cacheSaveFailed(cache.RecordStatus, err)
	}
}

func (e *Engine) saveComments() {
	if err := e.cache.SaveComments(e.comments); err != nil {
		e.cacheSaveFailed(cache.RecordComments, err)
	}
}

func (e *Engine) saveMeta() {
	if err := e.cache.SaveMeta(e.meta); err != nil {
		e.cacheSaveFailed(cache.RecordMeta, err)
	}
}

func (e *Engine) cacheSaveFailed(r cache.Record, err error) {
	e.metrics.CacheSaveError(string(r))
	e.logger.Warn("Failed to save cache record", "record", r, "error", err)
}

func cellPushKey(key board.CellKey, field string) writer.Key {
	return writer.Key{Kind: writer.KindCell, Entity: board.CellDocID(key), Field: field}
}

func (e *Engine) pushCell(doc *board.CellDocument) writer.PushFunc {
	return func(ctx context.Context) error {
		return e.store.MergeCell(ctx, doc)
	}
}

func (e *Engine) onPushResult(r writer.Result) {
	e.metrics.RemotePush(string(r.Key.Kind), r.Err, r.Duration)
	if r.Dropped {
		e.logger.Warn("Push to shared store failed, dropping",
			"key", r.Key.String(),
			"debounced", r.Debounced,
			"error", r.Err)
		return
	}
	if r.Err != nil {
		e.logger.Warn("Push to shared store failed",
			"key", r.Key.String(),
			"debounced", r.Debounced,
			"error", r.Err)
		return
	}
	e.logger.Debug("Pushed to shared store", "key", r.Key.String(), "duration", r.Duration)
}
