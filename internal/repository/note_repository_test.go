package repository

import (
	"context"
	"testing"
	"time"

	"github.com/poetry-royal/mefil/internal/domain"
)

func TestNoteCreateAndListRecent(t *testing.T) {
	repo := NewNoteRepository(newGormDBForTest(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	texts := []string{"chai break?", "ek aur pomodoro", "boss is at half"}
	for i, text := range texts {
		note := &domain.Note{
			Author:    domain.RoleBelal,
			Text:      text,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, note); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if note.ID == 0 {
			t.Fatal("create must assign an id")
		}
	}

	notes, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len=%d want 2", len(notes))
	}
	if notes[0].Text != "boss is at half" {
		t.Fatalf("first=%q want newest note first", notes[0].Text)
	}
}

func TestNoteListRecentDefaultsLimit(t *testing.T) {
	repo := NewNoteRepository(newGormDBForTest(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.Note{Author: domain.RoleRutbah, Text: "hello", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	notes, err := repo.ListRecent(ctx, -5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("len=%d want 1", len(notes))
	}
}
