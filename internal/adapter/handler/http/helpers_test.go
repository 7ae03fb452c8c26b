package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	handlers "github.com/thekiqdev/raceflow-hub-sub001/internal/adapter/handler/http"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/middleware/auth"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret"

// newTestEcho mirrors the server setup: validator installed, JWT on /api,
// admin check on /api/admin.
func newTestEcho() (*echo.Echo, *echo.Group, *echo.Group) {
	e := echo.New()
	e.Validator = handlers.NewRequestValidator()
	api := e.Group("/api", auth.JWTMiddleware(auth.JWTConfig{
		Secret:    testSecret,
		Logger:    zap.NewNop(),
		SkipPaths: []string{"/api/webhooks"},
	}))
	admin := api.Group("/admin", auth.RequireAdmin(zap.NewNop()))
	return e, api, admin
}

func bearer(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "runner@example.com",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doRequest(e *echo.Echo, method, path, authHeader, body string) *httptest.ResponseRecorder {
	return serve(e, method, path, echo.HeaderAuthorization, authHeader, body)
}

func doRequestWithHeader(e *echo.Echo, path, header, value, body string) *httptest.ResponseRecorder {
	return serve(e, http.MethodPost, path, header, value, body)
}

func serve(e *echo.Echo, method, path, header, value, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if value != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
