// Package notify доставляет уведомления об аукционах внешним потребителям.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// DefaultQueue список redis, в который складываются события.
const DefaultQueue = "auction:events"

// Message событие в том виде, в котором его получают потребители.
type Message struct {
	Type       domain.EventType `json:"type"`
	AuctionID  int64            `json:"auction_id"`
	UserID     int64            `json:"user_id"`
	Amount     domain.Amount    `json:"amount"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func NewMessage(e domain.Event) Message {
	return Message{
		Type:       e.Type,
		AuctionID:  e.AuctionID,
		UserID:     e.UserID,
		Amount:     e.Amount,
		OccurredAt: e.OccurredAt,
	}
}

// RedisDispatcher кладет события в конец списка redis.
type RedisDispatcher struct {
	rdb   redis.Cmdable
	queue string
}

func NewRedisDispatcher(rdb redis.Cmdable, queue string) *RedisDispatcher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisDispatcher{rdb: rdb, queue: queue}
}

func (d *RedisDispatcher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(NewMessage(event))
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if err = d.rdb.RPush(ctx, d.queue, payload).Err(); err != nil {
		return fmt.Errorf("push %s event to %s: %w", event.Type, d.queue, err)
	}
	return nil
}

// LogDispatcher пишет события в лог. Используется, когда redis не настроен.
type LogDispatcher struct {
	l *logrus.Entry
}

func NewLogDispatcher(l *logrus.Logger) *LogDispatcher {
	return &LogDispatcher{l: l.WithField("component", "notify")}
}

func (d *LogDispatcher) Publish(_ context.Context, event domain.Event) error {
	d.l.WithFields(logrus.Fields{
		"event":     event.Type,
		"auctionID": event.AuctionID,
		"userID":    event.UserID,
		"amount":    event.Amount.String(),
	}).Info("notification")
	return nil
}
