package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

// AuditBus fans admin audit entries out over redis pub/sub so internal
// tooling can tail them live. Same contract as the audit log itself:
// best-effort, never blocks a response.
type AuditBus interface {
	Publish(ctx context.Context, entry *types.AuditLog) error
	Close() error
}

type auditBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewAuditBus(addr, channel string, log *logger.Logger) (AuditBus, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = "admin_audit"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &auditBus{
		log:     log.With("client", "RedisAuditBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *auditBus) Publish(ctx context.Context, entry *types.AuditLog) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis audit bus not initialized")
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *auditBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
