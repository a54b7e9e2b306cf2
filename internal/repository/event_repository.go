package repository

import (
	"context"
	"errors"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrEventNotFound = errors.New("battle event not found")

type EventRepository interface {
	Append(ctx context.Context, event *domain.BattleEvent) error
	ListRecent(ctx context.Context, limit int) ([]domain.BattleEvent, error)
	CountByActor(ctx context.Context, actor domain.Role) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type GormEventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) EventRepository { return &GormEventRepository{db: db} }

func (r *GormEventRepository) Append(ctx context.Context, event *domain.BattleEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Create(event).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "event", "append", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "event", "append", "success")
	return nil
}

func (r *GormEventRepository) ListRecent(ctx context.Context, limit int) ([]domain.BattleEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []domain.BattleEvent
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "event", "list_recent", "error")
		return events, err
	}
	observability.RecordRepositoryOperation(ctx, "event", "list_recent", "success")
	return events, nil
}

func (r *GormEventRepository) CountByActor(ctx context.Context, actor domain.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.BattleEvent{}).
		Where("actor = ?", actor).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "event", "count_by_actor", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "event", "count_by_actor", "success")
	return count, nil
}

func (r *GormEventRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.BattleEvent{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "event", "delete_all", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "event", "delete_all", "success")
	return res.RowsAffected, nil
}
