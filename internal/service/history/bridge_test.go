package history

import (
	"context"
	"errors"
	"testing"

	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/storage"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) { return "", errors.New("disk on fire") }
func (failingStore) Set(context.Context, string, string) error   { return errors.New("disk on fire") }
func (failingStore) Delete(context.Context, string) error        { return errors.New("disk on fire") }
func (failingStore) Close() error                                { return nil }

func TestSaveAndLoadHistory(t *testing.T) {
	ctx := context.Background()
	bridge := NewBridge(storage.NewMemoryStore(), "s1", nil)

	entries := []chat.HistoryEntry{
		{Question: "hi", Response: "Hello! 😊", Timestamp: "2026-10-19T10:00:00.000Z"},
		{Question: "skills?", Response: "", Timestamp: "2026-10-19T10:00:05.000Z"},
	}
	if err := bridge.Save(ctx, entries); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	got := bridge.Load(ctx)
	if len(got) != 2 || got[0].Response != "Hello! 😊" || got[1].Question != "skills?" {
		t.Fatalf("unexpected history: %+v", got)
	}
}

func TestSaveOverwritesWholeLog(t *testing.T) {
	ctx := context.Background()
	bridge := NewBridge(storage.NewMemoryStore(), "", nil)

	_ = bridge.Save(ctx, []chat.HistoryEntry{{Question: "a"}, {Question: "b"}})
	_ = bridge.Save(ctx, []chat.HistoryEntry{{Question: "c"}})

	got := bridge.Load(ctx)
	if len(got) != 1 || got[0].Question != "c" {
		t.Fatalf("expected whole-log overwrite, got %+v", got)
	}
}

func TestLoadToleratesMissingAndCorruptData(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	bridge := NewBridge(store, "s1", nil)

	if got := bridge.Load(ctx); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil history for missing key, got %+v", got)
	}

	_ = store.Set(ctx, "s1:"+HistoryKey, "{not json")
	if got := bridge.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty history for corrupt data, got %+v", got)
	}

	failing := NewBridge(failingStore{}, "s1", nil)
	if got := failing.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty history for failing store, got %+v", got)
	}
	if got := NewBridge(nil, "", nil).Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty history without store, got %+v", got)
	}
}

func TestLoadTreatsStoredNullAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	bridge := NewBridge(store, "s1", nil)

	_ = store.Set(ctx, "s1:"+HistoryKey, "null")
	_ = store.Set(ctx, "s1:"+FeedbackKey, "null")

	if got := bridge.Load(ctx); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", got)
	}
	if got := bridge.LoadFeedback(ctx); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil feedback, got %#v", got)
	}
}

func TestClearHistoryKeepsFeedback(t *testing.T) {
	ctx := context.Background()
	bridge := NewBridge(storage.NewMemoryStore(), "s1", nil)

	_ = bridge.Save(ctx, []chat.HistoryEntry{{Question: "a", Response: "b"}})
	if err := bridge.AppendFeedback(ctx, chat.FeedbackRecord{Type: chat.FeedbackPositive, Response: "b"}); err != nil {
		t.Fatalf("AppendFeedback err: %v", err)
	}
	if err := bridge.ClearHistory(ctx); err != nil {
		t.Fatalf("ClearHistory err: %v", err)
	}

	if got := bridge.Load(ctx); len(got) != 0 {
		t.Fatalf("expected cleared history, got %+v", got)
	}
	if got := bridge.LoadFeedback(ctx); len(got) != 1 {
		t.Fatalf("expected feedback to survive clear, got %+v", got)
	}
}

func TestAppendFeedbackNeverDeduplicates(t *testing.T) {
	ctx := context.Background()
	bridge := NewBridge(storage.NewMemoryStore(), "s1", nil)
	record := chat.FeedbackRecord{Type: chat.FeedbackNegative, Message: "q", Response: "r"}

	for i := 0; i < 3; i++ {
		if err := bridge.AppendFeedback(ctx, record); err != nil {
			t.Fatalf("AppendFeedback err: %v", err)
		}
	}
	if got := bridge.LoadFeedback(ctx); len(got) != 3 {
		t.Fatalf("expected 3 identical records, got %d", len(got))
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	a := NewBridge(store, "a", nil)
	b := NewBridge(store, "b", nil)

	_ = a.Save(ctx, []chat.HistoryEntry{{Question: "from a"}})
	if got := b.Load(ctx); len(got) != 0 {
		t.Fatalf("namespace b saw namespace a history: %+v", got)
	}
}

func TestSaveSurfacesStoreErrors(t *testing.T) {
	bridge := NewBridge(failingStore{}, "", nil)
	if err := bridge.Save(context.Background(), nil); err == nil {
		t.Fatal("expected save error from failing store")
	}
}
