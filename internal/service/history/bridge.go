package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/storage"
)

const (
	HistoryKey  = "chatbot_history"
	FeedbackKey = "chatbot_feedback"
)

// Bridge serializes history and feedback logs into a key-value store.
// Every write replaces the whole log under its key.
type Bridge struct {
	store     storage.Store
	namespace string
	logger    *zap.Logger

	// feedback is read-modify-write; serialize appends
	feedbackMu sync.Mutex
}

// NewBridge binds a bridge to store. Keys are prefixed with namespace when
// it is non-empty so several sessions can share one store.
func NewBridge(store storage.Store, namespace string, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		store:     store,
		namespace: namespace,
		logger:    logger.With(zap.String("component", "history"), zap.String("namespace", namespace)),
	}
}

func (b *Bridge) key(name string) string {
	if b.namespace == "" {
		return name
	}
	return b.namespace + ":" + name
}

// Save overwrites the stored history with entries.
func (b *Bridge) Save(ctx context.Context, entries []chat.HistoryEntry) error {
	if b.store == nil {
		return nil
	}
	if entries == nil {
		entries = []chat.HistoryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := b.store.Set(ctx, b.key(HistoryKey), string(raw)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Load returns the stored history. Missing, unreadable or corrupt data
// yields an empty log.
func (b *Bridge) Load(ctx context.Context) []chat.HistoryEntry {
	var entries []chat.HistoryEntry
	if !b.read(ctx, HistoryKey, &entries) || entries == nil {
		return []chat.HistoryEntry{}
	}
	return entries
}

// ClearHistory removes the stored history.
func (b *Bridge) ClearHistory(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	if err := b.store.Delete(ctx, b.key(HistoryKey)); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// AppendFeedback adds record to the stored feedback list.
func (b *Bridge) AppendFeedback(ctx context.Context, record chat.FeedbackRecord) error {
	if b.store == nil {
		return nil
	}
	b.feedbackMu.Lock()
	defer b.feedbackMu.Unlock()

	records := b.LoadFeedback(ctx)
	records = append(records, record)
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	if err := b.store.Set(ctx, b.key(FeedbackKey), string(raw)); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// LoadFeedback returns every stored feedback record, oldest first.
func (b *Bridge) LoadFeedback(ctx context.Context) []chat.FeedbackRecord {
	var records []chat.FeedbackRecord
	if !b.read(ctx, FeedbackKey, &records) || records == nil {
		return []chat.FeedbackRecord{}
	}
	return records
}

func (b *Bridge) read(ctx context.Context, name string, out any) bool {
	if b.store == nil {
		return false
	}
	raw, err := b.store.Get(ctx, b.key(name))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Warn("read stored log failed", zap.String("key", name), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		b.logger.Warn("discarding corrupt stored log", zap.String("key", name), zap.Error(err))
		return false
	}
	return true
}
