package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"routelink/internal/scheduling"
)

const (
	identityKey = "identity"
	// TokenCookie carries the session token for browser clients.
	TokenCookie = "token"
)

// Claims is the session token payload.
type Claims struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Tokens issues and validates HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

func (t *Tokens) Generate(userID uint, name string) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *Tokens) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// tokenFrom looks in the Authorization header, then the session cookie, then
// the token query parameter used by websocket clients.
func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if v, err := c.Cookie(TokenCookie); err == nil && v != "" {
		return v
	}
	return c.Query("token")
}

// Identify resolves the caller's identity and stores it in the context.
// Missing or bad tokens yield an anonymous identity; use RequireAuth to reject.
func Identify(t *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := scheduling.Identity{}
		if raw := tokenFrom(c); raw != "" {
			if claims, err := t.Validate(raw); err == nil {
				id = scheduling.Identity{Authenticated: true, UserID: claims.UserID, DisplayName: claims.Name}
			}
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAuth rejects anonymous callers. It must run after Identify.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := scheduling.RequireAuthenticated(IdentityFrom(c)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required", "kind": "unauthenticated"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Identify.
func IdentityFrom(c *gin.Context) scheduling.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(scheduling.Identity); ok {
			return id
		}
	}
	return scheduling.Identity{}
}
