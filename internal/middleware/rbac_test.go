package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sims-core-api/internal/models"
)

func performRBAC(t *testing.T, claims *models.JWTClaims, path string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/resource/:id", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	}, handler, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRBACAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin}
	rec := performRBAC(t, claims, "/resource/x", RequireRoles(models.RoleAdmin, models.RoleRegistrar))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	rec := performRBAC(t, claims, "/resource/x", RequireRoles(models.RoleAdmin, models.RoleRegistrar))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	rec := performRBAC(t, nil, "/resource/x", RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRBACSelfMatchesPathParam(t *testing.T) {
	claims := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}

	rec := performRBAC(t, claims, "/resource/stu-1", RBAC("ADMIN", "SELF"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = performRBAC(t, claims, "/resource/stu-2", RBAC("ADMIN", "SELF"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
