package repository

import (
	"context"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/observability"

	"gorm.io/gorm"
)

type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	ListRecent(ctx context.Context, limit int) ([]domain.Note, error)
}

type GormNoteRepository struct{ db *gorm.DB }

func NewNoteRepository(db *gorm.DB) NoteRepository { return &GormNoteRepository{db: db} }

func (r *GormNoteRepository) Create(ctx context.Context, note *domain.Note) error {
	err := r.db.WithContext(ctx).Create(note).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "note", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "note", "create", "success")
	return nil
}

func (r *GormNoteRepository) ListRecent(ctx context.Context, limit int) ([]domain.Note, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var notes []domain.Note
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&notes).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "note", "list_recent", "error")
		return notes, err
	}
	observability.RecordRepositoryOperation(ctx, "note", "list_recent", "success")
	return notes, nil
}
