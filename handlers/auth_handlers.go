package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"leadsite/api/middleware"
	"leadsite/api/models"
	"leadsite/api/store"
	"leadsite/api/utils"
)

// UserAccounts is the part of the user store the auth endpoints need.
type UserAccounts interface {
	CreateUser(ctx context.Context, email, name string, hashedPassword []byte) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionRevocation records logged-out session tokens.
type SessionRevocation interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type AuthHandlers struct {
	Users    UserAccounts
	Sessions SessionRevocation

	secret     []byte
	sessionTTL time.Duration
	secure     bool
	bcryptCost int
}

// NewAuthHandlers creates the auth endpoints. sessions may be nil, in which
// case logout only clears the cookie.
func NewAuthHandlers(users UserAccounts, sessions SessionRevocation, secret []byte, sessionTTL time.Duration, secureCookies bool) *AuthHandlers {
	return &AuthHandlers{
		Users:      users,
		Sessions:   sessions,
		secret:     secret,
		sessionTTL: sessionTTL,
		secure:     secureCookies,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body.", "errors": err.Error()})
		return
	}
	email := normalizeEmail(req.Email)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to process password."})
		return
	}

	user, err := h.Users.CreateUser(c.Request.Context(), email, strings.TrimSpace(req.Name), hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"detail": "User with this email already exists."})
			return
		}
		log.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to register user."})
		return
	}

	log.Info().Int64("user_id", user.ID).Msg("User registered")
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully.", "user": user.Ref()})
}

// Login checks credentials and issues the session cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body.", "errors": err.Error()})
		return
	}

	user, err := h.Users.GetUserByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Error().Err(err).Msg("Failed to load user for login")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to log in."})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials."})
		return
	}
	if !user.IsActive || bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)) != nil {
		log.Info().Int64("user_id", user.ID).Msg("Login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials."})
		return
	}

	tokenString, claims, err := utils.GenerateJWT(user, h.secret, h.sessionTTL)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to generate session token")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to generate authentication token."})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, tokenString, int(h.sessionTTL/time.Second), "/", "", h.secure, true)

	log.Info().Int64("user_id", user.ID).Msg("User logged in")
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful.",
		"user":       user.Ref(),
		"expires_at": claims.ExpiresAt.Time.UTC(),
	})
}

// Logout revokes the current session token, if any, and clears the cookie.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if claims := middleware.CurrentClaims(c); claims != nil && h.Sessions != nil && claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if err := h.Sessions.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
			log.Warn().Err(err).Int64("user_id", claims.UserID).Msg("Failed to revoke session")
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully."})
}

func (h *AuthHandlers) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user":       middleware.CurrentUser(c),
		"ip_address": c.ClientIP(),
	})
}
