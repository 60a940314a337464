package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// rolePriority orders roles for effective-role resolution. Higher wins.
var rolePriority = map[Role]int{
	RoleAdmin:     3,
	RoleModerator: 2,
	RoleUser:      1,
}

func (r Role) Priority() int { return rolePriority[r] }

// ParseRole normalizes a requested role; ok is false for anything outside
// the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleModerator:
		return RoleModerator, true
	case RoleUser:
		return RoleUser, true
	default:
		return "", false
	}
}

// EffectiveRole resolves a user's role set to the highest-priority row.
// No rows means plain "user".
func EffectiveRole(roles []Role) Role {
	effective := RoleUser
	for _, r := range roles {
		if r.Priority() > effective.Priority() {
			effective = r
		}
	}
	return effective
}

// UserRole is one many-to-one role row. Role sets are additive: a moderator
// also keeps a baseline "user" row.
type UserRole struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_role_user_role" json:"user_id"`
	Role      Role      `gorm:"type:varchar(16);not null;uniqueIndex:idx_user_role_user_role" json:"role"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (UserRole) TableName() string { return "user_role" }
