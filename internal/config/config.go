package config

import (
	"strings"

	"github.com/careerdesk/careerdesk-backend/internal/platform/envutil"
)

// Pricing holds one provider's per-1000-token rates.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// InfraCosts are the fixed monthly line items added on top of token spend.
type InfraCosts struct {
	Database   float64
	Hosting    float64
	Email      float64
	Monitoring float64
}

func (ic InfraCosts) Total() float64 {
	return ic.Database + ic.Hosting + ic.Email + ic.Monitoring
}

// Config is loaded once at startup and injected everywhere; nothing reads
// the environment after Load returns.
type Config struct {
	Port    string
	LogMode string

	// Owner accounts can never be demoted, suspended, blocked, or
	// AI-disabled, and are the only callers the admin endpoint accepts.
	OwnerEmails []string

	IdentityBaseURL  string
	IdentityKey      string
	IdentityJWTKey   string
	IdentityPageSize int
	IdentityMaxPages int

	PasswordResetRedirectURL string

	// OpenAIShare of token traffic goes to OpenAI; the remainder is
	// Anthropic. The shares always sum to 1.
	OpenAIShare      float64
	OpenAIPricing    Pricing
	AnthropicPricing Pricing
	Infra            InfraCosts

	MessageSampleLimit int
	EventSampleLimit   int

	RedisAddr         string
	RedisAuditChannel string
}

func Load() *Config {
	share := envutil.Float("OPENAI_SHARE", 0.7)
	if share < 0 || share > 1 {
		share = 0.7
	}
	return &Config{
		Port:    envutil.String("PORT", "8080"),
		LogMode: envutil.String("LOG_MODE", "development"),

		OwnerEmails: normalizeEmails(envutil.Strings("ADMIN_OWNER_EMAILS")),

		IdentityBaseURL:  strings.TrimRight(envutil.String("IDENTITY_BASE_URL", ""), "/"),
		IdentityKey:      envutil.String("IDENTITY_SERVICE_KEY", ""),
		IdentityJWTKey:   envutil.String("IDENTITY_JWT_SECRET", ""),
		IdentityPageSize: envutil.Int("IDENTITY_PAGE_SIZE", 200),
		IdentityMaxPages: envutil.Int("IDENTITY_MAX_PAGES", 20),

		PasswordResetRedirectURL: envutil.String("PASSWORD_RESET_REDIRECT_URL", ""),

		OpenAIShare: share,
		OpenAIPricing: Pricing{
			InputPer1K:  envutil.Float("OPENAI_INPUT_COST_PER_1K", 0.00015),
			OutputPer1K: envutil.Float("OPENAI_OUTPUT_COST_PER_1K", 0.0006),
		},
		AnthropicPricing: Pricing{
			InputPer1K:  envutil.Float("ANTHROPIC_INPUT_COST_PER_1K", 0.003),
			OutputPer1K: envutil.Float("ANTHROPIC_OUTPUT_COST_PER_1K", 0.015),
		},
		Infra: InfraCosts{
			Database:   envutil.Float("INFRA_DB_MONTHLY_COST", 25),
			Hosting:    envutil.Float("INFRA_HOSTING_MONTHLY_COST", 20),
			Email:      envutil.Float("INFRA_EMAIL_MONTHLY_COST", 10),
			Monitoring: envutil.Float("INFRA_MONITORING_MONTHLY_COST", 5),
		},

		MessageSampleLimit: envutil.Int("ADMIN_MESSAGE_SAMPLE_LIMIT", 5000),
		EventSampleLimit:   envutil.Int("ADMIN_EVENT_SAMPLE_LIMIT", 20000),

		RedisAddr:         envutil.String("REDIS_ADDR", ""),
		RedisAuditChannel: envutil.String("REDIS_AUDIT_CHANNEL", "admin_audit"),
	}
}

// IsOwner reports whether email belongs to the configured owner set.
func (c *Config) IsOwner(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, o := range c.OwnerEmails {
		if o == email {
			return true
		}
	}
	return false
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
