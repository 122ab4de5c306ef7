package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredSetsActor(t *testing.T) {
	utils.SetJWTSecret("middleware-test-secret")

	r := gin.New()
	r.GET("/whoami", AuthRequired(), func(c *gin.Context) {
		actorID, _ := utils.GetActorIDFromContext(c)
		c.String(http.StatusOK, actorID)
	})

	token, err := utils.GenerateActorToken("writer-7", "writer", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "writer-7", w.Body.String())

	for _, header := range []string{"", "Token " + token, "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code, header)
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewRateLimiter(ctx, rate.Every(time.Hour), 1)
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	first := httptest.NewRequest(http.MethodGet, "/ping", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, http.StatusNoContent, serve(r, first).Code)

	second := httptest.NewRequest(http.MethodGet, "/ping", nil)
	second.RemoteAddr = "10.0.0.1:1234"
	w := serve(r, second)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusNoContent, serve(r, other).Code)
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewRateLimiter(ctx, rate.Limit(1), 1)
	now := time.Now()
	limiter.limiterFor("ip:10.0.0.1", now)
	limiter.limiterFor("ip:10.0.0.2", now.Add(2*time.Minute))

	limiter.evictIdle(now.Add(4 * time.Minute))

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.buckets, 1)
	assert.Contains(t, limiter.buckets, "ip:10.0.0.2")
}

func TestI18nMiddlewareNormalizesLanguage(t *testing.T) {
	r := gin.New()
	r.Use(I18nMiddleware())
	r.GET("/lang", func(c *gin.Context) {
		c.String(http.StatusOK, utils.GetLangFromContext(c))
	})

	cases := map[string]string{
		"zh-TW,zh;q=0.9": "zh_TW",
		"zh-Hant":        "zh_TW",
		"fr-FR":          "en",
		"":               "en",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/lang", nil)
		if header != "" {
			req.Header.Set("Accept-Language", header)
		}
		assert.Equal(t, want, serve(r, req).Body.String(), header)
	}
}
