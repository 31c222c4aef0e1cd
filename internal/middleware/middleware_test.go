package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
	"github.com/noah-isme/smk-student-hub/pkg/logger"
)

type staticValidator map[string]*models.Session

func (v staticValidator) ValidateToken(token string) (*models.Session, error) {
	if session, ok := v[token]; ok {
		return session, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newProtectedRouter(perms ...models.Permission) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := staticValidator{
		"staff":   {Name: "Bu Sari", Role: models.RoleStaff},
		"wali":    {Name: "Pak Budi", Role: models.RoleHomeroom, ImpersonatedBy: "Administrator"},
		"unknown": {Name: "X", Role: "kepala"},
	}
	router := gin.New()
	router.Use(JWT(validator))
	router.GET("/students", RequirePermission(perms...), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logger.ActorKey))
	})
	return router
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	router := newProtectedRouter()
	for _, header := range []string{"", "Token staff", "Bearer ", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/students", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestJWTAcceptsQueryToken(t *testing.T) {
	router := newProtectedRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students?access_token=staff", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bu Sari", rec.Body.String())
}

func TestRequirePermission(t *testing.T) {
	router := newProtectedRouter(models.PermManageStudents)

	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req.Header.Set("Authorization", "Bearer staff")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, token := range []string{"wali", "unknown"} {
		req = httptest.NewRequest(http.MethodGet, "/students", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, token)
	}
}

func TestJWTSetsImpersonatedActor(t *testing.T) {
	router := newProtectedRouter()
	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req.Header.Set("Authorization", "Bearer wali")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "Pak Budi (via Administrator)", rec.Body.String())
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(staticValidator{"staff": {Name: "Bu Sari", Role: models.RoleStaff}}))
	router.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer staff")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResponseMetaRecordsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/dashboard", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, true, meta["cache_hit"])
}
