package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/careerdesk/careerdesk-backend/internal/platform/apierr"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

// Ban durations understood by the provider. Blocking without an explicit
// blocked_until uses the effectively-permanent value.
const (
	BanNone      = "none"
	BanPermanent = "876600h"
)

// DirectoryUser is the provider's view of an account; the merge joins it
// with the local profile row.
type DirectoryUser struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	CreatedAt        *time.Time `json:"created_at"`
	LastSignInAt     *time.Time `json:"last_sign_in_at"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	BannedUntil      *time.Time `json:"banned_until"`
	AppMetadata      struct {
		Provider string `json:"provider"`
	} `json:"app_metadata"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

// Directory is the admin surface of the identity provider. All methods are
// remote calls; failures map to upstream errors.
type Directory interface {
	// ListUsers returns one page and whether the provider may have more.
	ListUsers(ctx context.Context, page, perPage int) ([]DirectoryUser, bool, error)
	// SetBanDuration (un)suspends login at the transport level.
	SetBanDuration(ctx context.Context, userID uuid.UUID, duration string) error
	// SignOutUser revokes every active session for the user.
	SignOutUser(ctx context.Context, userID uuid.UUID) error
	// GenerateRecoveryLink issues a password-reset link for the email.
	GenerateRecoveryLink(ctx context.Context, email, redirectTo string) (string, error)
}

type client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(baseURL, serviceKey string, baseLog *logger.Logger) (Directory, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("missing identity provider base URL")
	}
	if serviceKey == "" {
		return nil, fmt.Errorf("missing identity provider service key")
	}
	return &client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        baseLog.With("client", "IdentityDirectory"),
	}, nil
}

func (c *client) ListUsers(ctx context.Context, page, perPage int) ([]DirectoryUser, bool, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 200
	}
	endpoint := fmt.Sprintf("%s/admin/users?page=%d&per_page=%d", c.baseURL, page, perPage)

	var body struct {
		Users []DirectoryUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &body); err != nil {
		return nil, false, err
	}
	// A short page means the directory is exhausted.
	return body.Users, len(body.Users) == perPage, nil
}

func (c *client) SetBanDuration(ctx context.Context, userID uuid.UUID, duration string) error {
	endpoint := fmt.Sprintf("%s/admin/users/%s", c.baseURL, userID)
	payload := map[string]string{"ban_duration": duration}
	return c.do(ctx, http.MethodPut, endpoint, payload, nil)
}

func (c *client) SignOutUser(ctx context.Context, userID uuid.UUID) error {
	endpoint := fmt.Sprintf("%s/admin/users/%s/logout", c.baseURL, userID)
	return c.do(ctx, http.MethodPost, endpoint, map[string]string{}, nil)
}

func (c *client) GenerateRecoveryLink(ctx context.Context, email, redirectTo string) (string, error) {
	endpoint := fmt.Sprintf("%s/admin/generate_link", c.baseURL)
	payload := map[string]string{
		"type":  "recovery",
		"email": email,
	}
	if redirectTo != "" {
		if _, err := url.Parse(redirectTo); err != nil {
			return "", apierr.Validation("invalid_redirect", err)
		}
		payload["redirect_to"] = redirectTo
	}

	var body struct {
		ActionLink string `json:"action_link"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &body); err != nil {
		return "", err
	}
	if body.ActionLink == "" {
		return "", apierr.Upstream(fmt.Errorf("identity provider returned no action link"))
	}
	return body.ActionLink, nil
}

func (c *client) do(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return apierr.Internal(err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return apierr.Internal(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.Upstream(fmt.Errorf("identity provider request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn("identity provider call failed",
			"method", method,
			"status", resp.StatusCode,
			"body", string(raw),
		)
		return apierr.Upstream(fmt.Errorf("identity provider returned %s", strconv.Itoa(resp.StatusCode)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.Upstream(fmt.Errorf("decoding identity provider response: %w", err))
	}
	return nil
}
