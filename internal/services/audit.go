package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	redisclient "github.com/careerdesk/careerdesk-backend/internal/clients/redis"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos"
	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/ctxutil"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

// AuditService records mutating admin actions. Fire-and-forget: the write
// happens off the request path and failures are logged, never propagated.
// It provides no delivery guarantee.
type AuditService interface {
	Record(ctx context.Context, action, resource, resourceID string, metadata map[string]any)
}

type auditService struct {
	log       *logger.Logger
	auditRepo repos.AuditRepo
	bus       redisclient.AuditBus
}

// NewAuditService accepts a nil bus; redis fan-out is optional.
func NewAuditService(baseLog *logger.Logger, auditRepo repos.AuditRepo, bus redisclient.AuditBus) AuditService {
	return &auditService{
		log:       baseLog.With("service", "AuditService"),
		auditRepo: auditRepo,
		bus:       bus,
	}
}

func (as *auditService) Record(ctx context.Context, action, resource, resourceID string, metadata map[string]any) {
	entry := &types.AuditLog{
		ID:         uuid.New(),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		CreatedAt:  time.Now().UTC(),
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil {
		entry.ActorID = rd.UserID
		entry.IP = rd.IP
		entry.UserAgent = rd.UserAgent
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = datatypes.JSON(raw)
		}
	}

	// Detached from the request: the response never waits on this, and the
	// request context being canceled must not abort the write.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				as.log.Warn("audit write panicked", "panic", r)
			}
		}()
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := as.auditRepo.Insert(writeCtx, nil, entry); err != nil {
			as.log.Warn("audit write failed", "action", action, "error", err)
		}
		if as.bus != nil {
			if err := as.bus.Publish(writeCtx, entry); err != nil {
				as.log.Debug("audit bus publish failed", "action", action, "error", err)
			}
		}
	}()
}
