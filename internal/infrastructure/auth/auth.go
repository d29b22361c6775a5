package auth

import (
	"context"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/config"
	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

const (
	// ActorIDKey is the gin context key holding the authenticated actor.
	ActorIDKey = "user_id"
	// ActorHeader carries the actor id when JWT auth is disabled or already
	// enforced by the gateway in front of the service.
	ActorHeader = "X-User-ID"

	authTokenKey = "auth_token"
)

// Validator validates JWTs using JWKS.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:  cfg,
		log:  log,
		jwks: jwks,
	}, nil
}

// Middleware resolves the actor of the request. With auth enabled the actor is
// the subject of a valid bearer token; otherwise it is taken from ActorHeader.
// Requests without an actor continue unauthenticated; handlers that need one
// call ActorID.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || v.cfg == nil || !v.cfg.AuthEnabled {
		return func(c *gin.Context) {
			if actor := strings.TrimSpace(c.GetHeader(ActorHeader)); actor != "" {
				c.Set(ActorIDKey, actor)
			}
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
			jwt.WithAudience(v.cfg.AuthAudience),
			jwt.WithIssuer(v.cfg.AuthIssuer),
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		)
		if err != nil || !token.Valid {
			v.log.Debug().Err(err).Msg("jwt validation failed")
			abortUnauthorized(c, "invalid token")
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || strings.TrimSpace(subject) == "" {
			abortUnauthorized(c, "token has no subject")
			return
		}

		c.Set(authTokenKey, token)
		c.Set(ActorIDKey, subject)
		c.Next()
	}
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// ActorID returns the actor resolved by Middleware, or "" when there is none.
func ActorID(c *gin.Context) string {
	return c.GetString(ActorIDKey)
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	platformerrors.WriteUnauthorized(c, message)
}
