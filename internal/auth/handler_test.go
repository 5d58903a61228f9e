package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulsepoll/backend/internal/session"
)

func setupLoginRouter(t *testing.T) (*gin.Engine, *JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewJWTService("test-secret", 1)
	h := NewHandler(svc, "letmein", zap.NewNop())
	router := gin.New()
	router.POST("/auth/moderator", h.ModeratorLogin)
	return router, svc
}

func postLogin(router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/auth/moderator", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestModeratorLogin(t *testing.T) {
	router, svc := setupLoginRouter(t)

	w := postLogin(router, gin.H{"passcode": "letmein"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
			Role  string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, session.RoleModerator, body.Data.Role)

	claims, err := svc.Validate(body.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, session.RoleModerator, claims.Role)
}

func TestModeratorLoginRejected(t *testing.T) {
	router, _ := setupLoginRouter(t)

	t.Run("wrong passcode", func(t *testing.T) {
		w := postLogin(router, gin.H{"passcode": "guess"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing passcode", func(t *testing.T) {
		w := postLogin(router, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
