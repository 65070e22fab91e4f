package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/auth"
	"github.com/lectureship/backend/internal/models"
)

func protected(jwtSvc *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", JWT(jwtSvc), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserEmail))
	})
	return r
}

func call(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRole(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", 1)
	r := protected(jwtSvc)
	admin, err := jwtSvc.Generate(uuid.New(), "admin@example.org", string(models.RoleAdmin))
	require.NoError(t, err)
	staff, err := jwtSvc.Generate(uuid.New(), "staff@example.org", string(models.RoleStaff))
	require.NoError(t, err)

	w := call(r, http.MethodGet, "/admin/ping", map[string]string{"Authorization": "Bearer " + admin})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin@example.org", w.Body.String())

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/admin/ping", map[string]string{"Authorization": "Bearer " + staff}).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/admin/ping", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/admin/ping", map[string]string{"Authorization": "Basic abc"}).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/admin/ping", map[string]string{"Authorization": "Bearer garbage"}).Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://lectureship.example.org"}))
	r.GET("/pricing", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := call(r, http.MethodOptions, "/pricing", map[string]string{"Origin": "https://lectureship.example.org"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://lectureship.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	w = call(r, http.MethodGet, "/pricing", map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

type observed struct{ method, route, status string }

type recorder []observed

func (r *recorder) ObserveRequest(method, route, status string, _ time.Time) {
	*r = append(*r, observed{method, route, status})
}

func TestLogger_ObservesRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &recorder{}
	r := gin.New()
	r.Use(Logger(zap.NewNop(), rec))
	r.GET("/admin/registrations/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	call(r, http.MethodGet, "/admin/registrations/reg_1", nil)
	call(r, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, recorder{
		{"GET", "/admin/registrations/:id", "404"},
		{"GET", "unmatched", "404"},
	}, *rec)
}
