package repos

import (
	"gorm.io/gorm"

	"github.com/careerdesk/careerdesk-backend/internal/data/repos/audit"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos/identity"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos/traffic"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos/usage"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

type ProfileRepo = identity.ProfileRepo
type RoleRepo = identity.RoleRepo
type AccessRepo = identity.AccessRepo

type UsageRepo = usage.UsageRepo
type EventRepo = traffic.EventRepo
type AuditRepo = audit.AuditRepo

func NewProfileRepo(db *gorm.DB, log *logger.Logger) ProfileRepo {
	return identity.NewProfileRepo(db, log)
}
func NewRoleRepo(db *gorm.DB, log *logger.Logger) RoleRepo {
	return identity.NewRoleRepo(db, log)
}
func NewAccessRepo(db *gorm.DB, log *logger.Logger) AccessRepo {
	return identity.NewAccessRepo(db, log)
}
func NewUsageRepo(db *gorm.DB, log *logger.Logger) UsageRepo {
	return usage.NewUsageRepo(db, log)
}
func NewEventRepo(db *gorm.DB, log *logger.Logger) EventRepo {
	return traffic.NewEventRepo(db, log)
}
func NewAuditRepo(db *gorm.DB, log *logger.Logger) AuditRepo {
	return audit.NewAuditRepo(db, log)
}
