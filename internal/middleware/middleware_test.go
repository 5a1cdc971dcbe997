package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(jwtManager *utils.JWTManager, roles ...models.Role) *gin.Engine {
	r := gin.New()
	r.Use(I18nMiddleware(), AuthRequired(jwtManager))
	handlers := []gin.HandlerFunc{}
	if len(roles) > 0 {
		handlers = append(handlers, RoleRequired(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := utils.GetActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"identity": actor.Identity, "role": actor.Role})
	})
	r.GET("/whoami", handlers...)
	return r
}

func request(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	jwtManager := utils.NewJWTManager("test-secret", "licensing-test")
	r := newAuthRouter(jwtManager)

	token, err := jwtManager.GenerateJWT("Officer@Police.example", "officer", time.Hour)
	require.NoError(t, err)

	w := request(r, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"identity":"officer@police.example","role":"officer"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, request(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "garbage").Code)

	forged, err := utils.NewJWTManager("other-secret", "licensing-test").GenerateJWT("a@b.example", "oversight", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(r, forged).Code)

	expired, err := jwtManager.GenerateJWT("a@b.example", "dealer", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(r, expired).Code)

	unknownRole, err := jwtManager.GenerateJWT("a@b.example", "admin", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(r, unknownRole).Code)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleRequired(t *testing.T) {
	jwtManager := utils.NewJWTManager("test-secret", "licensing-test")
	r := newAuthRouter(jwtManager, models.RoleDealer)

	dealerToken, err := jwtManager.GenerateJWT("dealer@guns.example", "dealer", time.Hour)
	require.NoError(t, err)
	officerToken, err := jwtManager.GenerateJWT("officer@police.example", "officer", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, request(r, dealerToken).Code)
	assert.Equal(t, http.StatusForbidden, request(r, officerToken).Code)
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, "en", parseLanguage(""))
	assert.Equal(t, "zh_TW", parseLanguage("zh-TW,zh;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", parseLanguage("fr-FR"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2)
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterStop(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Second), 1)

	stopped := make(chan struct{})
	go func() {
		rl.Stop()
		rl.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("cleanup goroutine did not exit")
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
