package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mao-amiga/pkg/jwt"
	"mao-amiga/pkg/logger"
	notificationHTTP "mao-amiga/services/notification/internal/controller/http"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := notificationHTTP.NewNotificationHandler(nil, logger.New())
	router := NewRouter(jwt.NewService("test-secret"), nil, handler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, "/api/v1/notifications", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, method)
	}
}
