package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pyrechat/pyre-server/internal/auth"
	"github.com/pyrechat/pyre-server/internal/proto"
	"github.com/pyrechat/pyre-server/internal/store"
)

// APIHandlers provides HTTP handlers for the account endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// RegisterRequest is accepted as query parameters, form fields or JSON.
type RegisterRequest struct {
	Username    string `form:"username" json:"username" binding:"required"`
	Password    string `form:"password" json:"password" binding:"required"`
	Email       string `form:"email" json:"email"`
	DisplayName string `form:"display_name" json:"display_name"`
}

// TokenRequest follows the OAuth2 password grant form.
type TokenRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles user registration.
// POST /register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username and password are required"})
		return
	}

	_, err := h.authService.Register(c.Request.Context(), auth.Registration{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "username already exists"})
		case errors.Is(err, auth.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user registered successfully")
	c.JSON(http.StatusOK, MessageResponse{Message: "User registered successfully"})
}

// Token exchanges credentials for a bearer token.
// POST /token
func (h *APIHandlers) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid token request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username and password are required"})
		return
	}

	token, err := h.authService.IssueToken(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "incorrect username or password"})
		case errors.Is(err, auth.ErrUserDisabled):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "inactive user"})
		default:
			h.log.Error().Err(err).Str("username", req.Username).Msg("failed to issue token")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("username", req.Username).Time("expires_at", token.ExpiresAt).Msg("token issued")
	c.JSON(http.StatusOK, proto.TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})
}

// Me returns the caller's public profile.
// GET /users/me
func (h *APIHandlers) Me(c *gin.Context) {
	username := c.GetString(ContextKeyUsername)
	if username == "" {
		h.log.Error().Msg("username not found in context")
		unauthorized(c, "not authenticated")
		return
	}

	user, err := h.authService.Profile(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			unauthorized(c, "could not validate credentials")
			return
		}
		h.log.Error().Err(err).Str("username", username).Msg("failed to load profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, proto.Profile{
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Disabled:    user.Disabled,
	})
}
