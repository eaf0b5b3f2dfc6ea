package store

import (
	"errors"
	"testing"
	"time"
)

func TestSessionRepository_CreateGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{ID: "sess-1", Scene: "Corridor", SceneNum: 3, Iteration: 2}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.StartedAt.IsZero() {
		t.Error("StartedAt should be set after create")
	}

	got, err := repo.GetByID("sess-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Scene != "Corridor" || got.SceneNum != 3 || got.Iteration != 2 || got.Ticks != 0 {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil for an open session", got.EndedAt)
	}
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Sessions().GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()
	if err := repo.Create(&Session{ID: "dup", Scene: "A"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(&Session{ID: "dup", Scene: "B"}); err == nil {
		t.Error("expected error creating a session with a duplicate id")
	}
}

func TestSessionRepository_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := repo.Create(&Session{ID: id, Scene: "Lab", Iteration: i, StartedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d sessions, want 3", len(list))
	}
	if list[0].ID != "c" || list[2].ID != "a" {
		t.Errorf("List() order = %s, %s, %s, want c, b, a", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestSessionRepository_Finish(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()
	if err := repo.Create(&Session{ID: "f", Scene: "Lab"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	end := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	if err := repo.Finish("f", end, 1200); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := repo.GetByID("f")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Ticks != 1200 {
		t.Errorf("Ticks = %d, want 1200", got.Ticks)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
	}

	if err := repo.Finish("missing", end, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	if err := s.Sessions().Create(&Session{ID: "d", Scene: "Lab"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Samples().Append("d", []WalkSample{{Seq: 1}}, []EncumbranceSample{{Seq: 1}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := s.Sessions().Delete("d"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Sessions().Delete("d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM walk_samples").Scan(&n); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if n != 0 {
		t.Errorf("%d walk samples left after deleting the session", n)
	}
}
