package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/careerdesk/careerdesk-backend/internal/config"
	"github.com/careerdesk/careerdesk-backend/internal/http/response"
	"github.com/careerdesk/careerdesk-backend/internal/platform/ctxutil"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

// OwnerAuthMiddleware admits only the configured owner accounts. Anyone
// else, including valid signed-in users, gets a 403.
type OwnerAuthMiddleware struct {
	log *logger.Logger
	cfg *config.Config
}

func NewOwnerAuthMiddleware(log *logger.Logger, cfg *config.Config) *OwnerAuthMiddleware {
	return &OwnerAuthMiddleware{log: log.With("Middleware", "OwnerAuthMiddleware"), cfg: cfg}
}

type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (om *OwnerAuthMiddleware) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			c.Abort()
			return
		}
		claims, err := om.parseToken(tokenString)
		if err != nil {
			om.log.Debug("Token rejected", "error", err.Error())
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			c.Abort()
			return
		}
		if !om.cfg.IsOwner(claims.Email) {
			om.log.Warn("Non-owner attempted admin access", "email", claims.Email)
			response.RespondError(c, http.StatusForbidden, "forbidden", errors.New("admin access is restricted to owner accounts"))
			c.Abort()
			return
		}
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			c.Abort()
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID:    userID,
			Email:     strings.ToLower(strings.TrimSpace(claims.Email)),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (om *OwnerAuthMiddleware) parseToken(tokenString string) (*identityClaims, error) {
	if om.cfg.IdentityJWTKey == "" {
		return nil, errors.New("jwt secret not configured")
	}
	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(om.cfg.IdentityJWTKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
