package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/observability"

	"github.com/redis/go-redis/v9"
)

// AttackEvent is the payload fanned out to the partner when the quest state
// changes under their feet.
type AttackEvent struct {
	Type      domain.ActionType `json:"type"`
	Actor     domain.Role       `json:"actor"`
	Damage    int               `json:"damage"`
	BossHP    int               `json:"boss_hp"`
	TeamHP    int               `json:"team_hp"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notifier delivers best-effort partner notifications. Failures must never
// fail the triggering operation.
type Notifier interface {
	NotifyQuestAction(ctx context.Context, target domain.Role, event AttackEvent)
}

type RedisNotifier struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

func NewRedisNotifier(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisNotifier {
	if prefix == "" {
		prefix = "mefil"
	}
	return &RedisNotifier{client: client, prefix: prefix, logger: logger}
}

func (n *RedisNotifier) NotifyQuestAction(ctx context.Context, target domain.Role, event AttackEvent) {
	if n.client == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("encode notification", "target", target, "error", err)
		observability.RecordNotifyDelivery(ctx, string(target), "encode_error")
		return
	}
	channel := fmt.Sprintf("%s:notify:%s", n.prefix, target)
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.Warn("publish notification", "channel", channel, "error", err)
		observability.RecordNotifyDelivery(ctx, string(target), "error")
		return
	}
	observability.RecordNotifyDelivery(ctx, string(target), "success")
}

// NopNotifier drops every notification. Used when notifications are disabled
// and in tests.
type NopNotifier struct{}

func (NopNotifier) NotifyQuestAction(context.Context, domain.Role, AttackEvent) {}
