package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/repository"
)

var (
	ErrEmptyNote   = errors.New("note text is empty")
	ErrNoteTooLong = errors.New("note text is too long")
)

const maxNoteRunes = 500

// ChatService is the shared message board next to the battle.
type ChatService struct {
	notes repository.NoteRepository
	now   func() time.Time
}

func NewChatService(notes repository.NoteRepository) *ChatService {
	return &ChatService{notes: notes, now: time.Now}
}

func (s *ChatService) Post(ctx context.Context, author domain.Role, text string) (*domain.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyNote
	}
	if utf8.RuneCountInString(text) > maxNoteRunes {
		return nil, ErrNoteTooLong
	}
	note := &domain.Note{
		Author:    author,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *ChatService) Recent(ctx context.Context, limit int) ([]domain.Note, error) {
	return s.notes.ListRecent(ctx, limit)
}
