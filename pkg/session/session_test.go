package session

import (
	"context"
	"testing"
	"time"
)

// ====== Session State ======

func TestNew_AssignsID(t *testing.T) {
	a := New()
	b := New()

	if a.ID == "" {
		t.Fatal("new session must carry an id")
	}
	if a.ID == b.ID {
		t.Error("session ids must be unique")
	}
	if a.CreatedAt.IsZero() || a.LastActivity.IsZero() {
		t.Error("timestamps must be set")
	}
}

func TestTouch(t *testing.T) {
	s := New()
	before := s.LastActivity

	time.Sleep(time.Millisecond)
	s.Touch()
	s.Touch()

	if s.MessageCount != 2 {
		t.Errorf("expected message count 2, got %d", s.MessageCount)
	}
	if !s.LastActivity.After(before) {
		t.Error("Touch must advance last activity")
	}
}

func TestAppendExchange_TrimsOldestFirst(t *testing.T) {
	s := New()
	s.AppendExchange("first question", "first answer", 4)
	s.AppendExchange("second question", "second answer", 4)
	s.AppendExchange("third question", "third answer", 4)

	if len(s.History) != 4 {
		t.Fatalf("expected history trimmed to 4 messages, got %d", len(s.History))
	}
	if s.History[0].Content != "second question" {
		t.Errorf("oldest exchange should be dropped, history starts with %q", s.History[0].Content)
	}
	if s.History[3].Content != "third answer" {
		t.Errorf("newest answer should be last, got %q", s.History[3].Content)
	}
}

func TestAppendExchange_Roles(t *testing.T) {
	s := New()
	s.AppendExchange("question", "answer", 10)

	if s.History[0].Role != "user" || s.History[1].Role != "assistant" {
		t.Errorf("unexpected roles: %s, %s", s.History[0].Role, s.History[1].Role)
	}
}

func TestRecordAttempt_Bounded(t *testing.T) {
	s := New()
	for i := 0; i < maxAttempts+10; i++ {
		s.RecordAttempt(Attempt{Backend: "chat-mini", Success: true})
	}

	if len(s.Attempts) != maxAttempts {
		t.Errorf("expected attempts capped at %d, got %d", maxAttempts, len(s.Attempts))
	}
}

// ====== Memory Store ======

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	sess := New()
	sess.CostSpent = 0.012
	sess.AppendExchange("hi", "hello", 10)

	if err := store.Put(context.Background(), sess); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.CostSpent != 0.012 || len(got.History) != 2 {
		t.Errorf("session not preserved: %+v", got)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	if _, err := store.Get(context.Background(), "absent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	sess := New()
	sess.AppendExchange("hi", "hello", 10)
	if err := store.Put(context.Background(), sess); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Mutating the caller's copy after Put must not affect the store.
	sess.History[0].Content = "tampered"
	sess.CostSpent = 99

	got, err := store.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.History[0].Content != "hi" || got.CostSpent != 0 {
		t.Error("store shares state with callers")
	}

	// And mutating a fetched copy must not affect later reads.
	got.History[0].Content = "also tampered"
	again, err := store.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if again.History[0].Content != "hi" {
		t.Error("Get shares state between callers")
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore(20 * time.Millisecond)
	defer store.Close()

	sess := New()
	if err := store.Put(context.Background(), sess); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if _, err := store.Get(context.Background(), sess.ID); err != ErrNotFound {
		t.Errorf("expected expired session to be gone, got %v", err)
	}
}

func TestMemoryStore_PutResetsExpiry(t *testing.T) {
	store := NewMemoryStore(50 * time.Millisecond)
	defer store.Close()

	sess := New()
	if err := store.Put(context.Background(), sess); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Keep the session warm past the original window.
	time.Sleep(30 * time.Millisecond)
	if err := store.Put(context.Background(), sess); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := store.Get(context.Background(), sess.ID); err != nil {
		t.Errorf("refreshed session should still be live, got %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	sess := New()
	if err := store.Put(context.Background(), sess); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(context.Background(), sess.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(context.Background(), sess.ID); err != ErrNotFound {
		t.Error("deleted session still readable")
	}
	if err := store.Delete(context.Background(), "absent"); err != nil {
		t.Errorf("deleting a missing session must not error, got %v", err)
	}
}
