package handler

import (
	"net/http"

	"projecttracker/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	verifier  auth.Verifier
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthHandler(verifier auth.Verifier, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{verifier: verifier, jwtSecret: jwtSecret, logger: logger}
}

// Login exchanges an identity-provider ID token for a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idToken required"})
		return
	}

	id, err := h.verifier.Verify(c.Request.Context(), req.IDToken)
	if err != nil {
		h.logger.Warn("Login: token verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	token, err := auth.MintSessionToken(id, h.jwtSecret)
	if err != nil {
		h.logger.Error("Login: failed to mint session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	h.logger.Info("Login: success", zap.String("user_id", id.UserID))
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":    id.UserID,
			"email": id.Email,
			"name":  id.Name,
		},
	})
}
