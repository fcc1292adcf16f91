package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routelink/internal/scheduling"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	raw, err := tokens.Generate(7, "Asha")
	require.NoError(t, err)

	claims, err := tokens.Validate(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "Asha", claims.Name)
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	issued := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	raw, err := tokens.Generate(7, "Asha")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = tokens.Validate(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other := NewTokens("other", time.Hour)
	other.now = func() time.Time { return issued }
	_, err = other.Validate(raw)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Validate(none)
	assert.Error(t, err)
}

func TestIdentifyTokenSources(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := NewTokens("secret", time.Hour)
	raw, err := tokens.Generate(3, "Ravi")
	require.NoError(t, err)

	identify := func(req *http.Request) scheduling.Identity {
		var got scheduling.Identity
		r := gin.New()
		r.Use(Identify(tokens))
		r.GET("/", func(c *gin.Context) { got = IdentityFrom(c) })
		r.ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	header := httptest.NewRequest(http.MethodGet, "/", nil)
	header.Header.Set("Authorization", "Bearer "+raw)
	cookie := httptest.NewRequest(http.MethodGet, "/", nil)
	cookie.AddCookie(&http.Cookie{Name: TokenCookie, Value: raw})
	query := httptest.NewRequest(http.MethodGet, "/?token="+raw, nil)

	for name, req := range map[string]*http.Request{"header": header, "cookie": cookie, "query": query} {
		id := identify(req)
		assert.True(t, id.Authenticated, name)
		assert.EqualValues(t, 3, id.UserID, name)
		assert.Equal(t, "Ravi", id.DisplayName, name)
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("Authorization", "Bearer junk")
	assert.False(t, identify(bad).Authenticated)
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identify(NewTokens("secret", time.Hour)))
	r.GET("/private", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"login required","kind":"unauthenticated"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	preflight := func(h http.Handler, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/routes/1", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	open := CORS(nil)(next)
	w := preflight(open, "http://localhost:5173")
	assert.Less(t, w.Code, 300)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)

	listed := CORS([]string{"https://rides.example.com"})(next)
	assert.Equal(t, "https://rides.example.com",
		preflight(listed, "https://rides.example.com").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, preflight(listed, "https://evil.example.com").Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/routes/1", nil)
	req.Header.Set("Origin", "https://rides.example.com")
	listed.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "https://rides.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
