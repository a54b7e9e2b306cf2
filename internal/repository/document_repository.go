package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/observability"

	"github.com/redis/go-redis/v9"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrVersionConflict  = errors.New("document version conflict")
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// DocumentRepository persists the single shared session document per scope.
// Save is optimistic: it only writes when the stored version still matches
// the version the caller loaded, and bumps the version on success.
type DocumentRepository interface {
	Load(ctx context.Context, scope string) (*domain.SharedDocument, error)
	LoadOrCreate(ctx context.Context, scope string) (*domain.SharedDocument, error)
	Save(ctx context.Context, doc *domain.SharedDocument) error
}

type RedisDocumentRepository struct {
	client   redis.UniversalClient
	prefix   string
	defaults domain.DocumentDefaults
}

func NewDocumentRepository(client redis.UniversalClient, prefix string, defaults domain.DocumentDefaults) *RedisDocumentRepository {
	if prefix == "" {
		prefix = "mefil"
	}
	return &RedisDocumentRepository{client: client, prefix: prefix, defaults: defaults}
}

func (r *RedisDocumentRepository) Load(ctx context.Context, scope string) (*domain.SharedDocument, error) {
	if r.client == nil {
		return nil, ErrStoreUnavailable
	}
	raw, err := r.client.Get(ctx, r.docKey(scope)).Result()
	if err == redis.Nil {
		observability.RecordRepositoryOperation(ctx, "document", "load", "not_found")
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "document", "load", "error")
		return nil, fmt.Errorf("load document %q: %w", scope, err)
	}
	doc, err := decodeDocument([]byte(raw), r.defaults)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "document", "load", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "document", "load", "success")
	return doc, nil
}

func (r *RedisDocumentRepository) LoadOrCreate(ctx context.Context, scope string) (*domain.SharedDocument, error) {
	doc, err := r.Load(ctx, scope)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrDocumentNotFound) {
		return nil, err
	}

	fresh := domain.NewSharedDocument(scope, r.defaults)
	fresh.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("encode document %q: %w", scope, err)
	}
	// SETNX so two racing first readers agree on one seed document.
	created, err := r.client.SetNX(ctx, r.docKey(scope), payload, 0).Result()
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "document", "create", "error")
		return nil, fmt.Errorf("create document %q: %w", scope, err)
	}
	if !created {
		return r.Load(ctx, scope)
	}
	observability.RecordRepositoryOperation(ctx, "document", "create", "success")
	return fresh, nil
}

func (r *RedisDocumentRepository) Save(ctx context.Context, doc *domain.SharedDocument) error {
	if r.client == nil {
		return ErrStoreUnavailable
	}
	key := r.docKey(doc.Scope)
	expected := doc.Version

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			if expected != 0 {
				return ErrVersionConflict
			}
		} else if err != nil {
			return err
		} else {
			stored, err := decodeDocument([]byte(raw), r.defaults)
			if err != nil {
				return err
			}
			if stored.Version != expected {
				return ErrVersionConflict
			}
		}

		next := *doc
		next.Version = expected + 1
		next.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("encode document %q: %w", doc.Scope, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		doc.Version = next.Version
		doc.UpdatedAt = next.UpdatedAt
		return nil
	}, key)

	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, "document", "save", "success")
		return nil
	case errors.Is(err, ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		observability.RecordDocumentSaveConflict(ctx, doc.Scope)
		observability.RecordRepositoryOperation(ctx, "document", "save", "conflict")
		return ErrVersionConflict
	default:
		observability.RecordRepositoryOperation(ctx, "document", "save", "error")
		return fmt.Errorf("save document %q: %w", doc.Scope, err)
	}
}

func (r *RedisDocumentRepository) docKey(scope string) string {
	return fmt.Sprintf("%s:doc:%s", r.prefix, scope)
}

func decodeDocument(raw []byte, defaults domain.DocumentDefaults) (*domain.SharedDocument, error) {
	var doc domain.SharedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.Normalize(defaults)
	return &doc, nil
}
