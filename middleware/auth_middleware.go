package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"leadsite/api/models"
	"leadsite/api/store"
	"leadsite/api/utils"
)

const (
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "jwt_token"

	userKey   = "user"
	claimsKey = "claims"
)

// UserLookup loads a user that may hold a session.
type UserLookup interface {
	GetActiveUserByID(ctx context.Context, id int64) (*models.User, error)
}

// SessionRevoker reports revoked session token ids.
type SessionRevoker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator resolves the session token of a request to a user.
type Authenticator struct {
	secret  []byte
	users   UserLookup
	revoked SessionRevoker
}

// NewAuthenticator creates an Authenticator. revoked may be nil when no
// revocation list is configured.
func NewAuthenticator(secret []byte, users UserLookup, revoked SessionRevoker) *Authenticator {
	return &Authenticator{secret: secret, users: users, revoked: revoked}
}

// tokensFromRequest returns the session cookie and the bearer token, in that
// order, skipping whichever is absent.
func tokensFromRequest(c *gin.Context) []string {
	var tokens []string
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		tokens = append(tokens, token)
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		if token := strings.TrimSpace(header[7:]); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// authenticate accepts the first credential that resolves to an active
// session, so a stale cookie does not shadow a valid bearer token.
func (a *Authenticator) authenticate(c *gin.Context) (*models.UserRef, *utils.Claims, error) {
	tokens := tokensFromRequest(c)
	if len(tokens) == 0 {
		return nil, nil, errors.New("no token provided")
	}
	var err error
	for _, token := range tokens {
		var (
			ref    *models.UserRef
			claims *utils.Claims
		)
		if ref, claims, err = a.resolve(c, token); err == nil {
			return ref, claims, nil
		}
	}
	return nil, nil, err
}

func (a *Authenticator) resolve(c *gin.Context, tokenString string) (*models.UserRef, *utils.Claims, error) {
	claims, err := utils.ValidateJWT(tokenString, a.secret)
	if err != nil {
		return nil, nil, err
	}

	ctx := c.Request.Context()
	if a.revoked != nil {
		revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, err
		}
		if revoked {
			return nil, nil, errors.New("session revoked")
		}
	}

	user, err := a.users.GetActiveUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	ref := user.Ref()
	return &ref, claims, nil
}

// OptionalAuth attaches the session user when the request carries a valid
// token and lets anonymous requests through untouched.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ref, claims, err := a.authenticate(c); err == nil {
			c.Set(userKey, ref)
			c.Set(claimsKey, claims)
		}
		c.Next()
	}
}

// AuthRequired rejects requests without a valid session.
func (a *Authenticator) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, claims, err := a.authenticate(c)
		if err != nil {
			if !errors.Is(err, store.ErrUserNotFound) {
				log.Debug().Err(err).Str("path", c.FullPath()).Msg("Rejected unauthenticated request")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication required."})
			return
		}
		c.Set(userKey, ref)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// CurrentUser returns the session user attached by OptionalAuth or
// AuthRequired, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.UserRef {
	if v, ok := c.Get(userKey); ok {
		if ref, ok := v.(*models.UserRef); ok {
			return ref
		}
	}
	return nil
}

// CurrentClaims returns the validated token claims of the request.
func CurrentClaims(c *gin.Context) *utils.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok {
			return claims
		}
	}
	return nil
}

// AdminRequired guards staff endpoints with a static API key sent in
// X-API-KEY. An empty key disables the endpoints.
func AdminRequired(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-API-KEY")
		if apiKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Admin access required."})
			return
		}
		c.Next()
	}
}
