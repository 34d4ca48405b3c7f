package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-ops-api/internal/models"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	token  string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.token = token
	if v.claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

type observerStub struct {
	path   string
	status int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.path, o.status = path, status
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func protectedRouter(v TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin/ping", JWT(v), RequireRoles(roles...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	router := protectedRouter(&validatorStub{claims: &models.JWTClaims{Role: models.RoleAdmin}}, models.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer ").Code)
}

func TestJWTAndRoles(t *testing.T) {
	v := &validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}}

	w := serve(protectedRouter(v, models.RoleAdmin, models.RoleTeacher), "bearer abc")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "abc", v.token)

	w = serve(protectedRouter(v, models.RoleAdmin), "Bearer abc")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(protectedRouter(&validatorStub{}, models.RoleAdmin), "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin/ping", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		_ = c.Error(errors.New("should not run"))
	})
	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/s1", nil))
	assert.Equal(t, "/sessions/:id", observer.path)
	assert.Equal(t, http.StatusOK, observer.status)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, "unmatched", observer.path)
	assert.Equal(t, http.StatusNotFound, observer.status)
}
