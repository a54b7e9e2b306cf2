package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/poetry-royal/mefil/internal/domain"
)

type memoryNoteRepo struct {
	mu    sync.Mutex
	notes []domain.Note
}

func (r *memoryNoteRepo) Create(_ context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	note.ID = uint(len(r.notes) + 1)
	r.notes = append(r.notes, *note)
	return nil
}

func (r *memoryNoteRepo) ListRecent(_ context.Context, limit int) ([]domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Note, 0, limit)
	for i := len(r.notes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.notes[i])
	}
	return out, nil
}

func TestPostTrimsAndStores(t *testing.T) {
	repo := &memoryNoteRepo{}
	svc := NewChatService(repo)

	note, err := svc.Post(context.Background(), domain.RoleBelal, "  chai break?  ")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if note.Text != "chai break?" {
		t.Fatalf("text=%q want trimmed", note.Text)
	}
	if note.ID == 0 {
		t.Fatal("note must get an id")
	}
}

func TestPostRejectsEmptyNote(t *testing.T) {
	svc := NewChatService(&memoryNoteRepo{})
	if _, err := svc.Post(context.Background(), domain.RoleBelal, "   "); !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("err=%v want ErrEmptyNote", err)
	}
}

func TestPostRejectsOversizedNote(t *testing.T) {
	svc := NewChatService(&memoryNoteRepo{})
	long := strings.Repeat("x", maxNoteRunes+1)
	if _, err := svc.Post(context.Background(), domain.RoleRutbah, long); !errors.Is(err, ErrNoteTooLong) {
		t.Fatalf("err=%v want ErrNoteTooLong", err)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	repo := &memoryNoteRepo{}
	svc := NewChatService(repo)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		if _, err := svc.Post(ctx, domain.RoleRutbah, text); err != nil {
			t.Fatalf("post %q: %v", text, err)
		}
	}
	notes, err := svc.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(notes) != 2 || notes[0].Text != "three" {
		t.Fatalf("notes=%+v want newest first", notes)
	}
}
