package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"busbooking/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	identityKey = "identity"
	roleKey     = "userRole"
)

// Claims is the bearer token payload issued by the auth service.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	BusID  string `json:"busId,omitempty"`
	jwt.RegisteredClaims
}

// RequireAuth rejects requests without a valid HS256 bearer token and stores
// the caller's identity on the context.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		claims := &Claims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			abortUnauthorized(c, msg)
			return
		}
		if strings.TrimSpace(claims.UserID) == "" {
			abortUnauthorized(c, "token has no user")
			return
		}

		id := domain.Identity{
			UserID:    claims.UserID,
			Email:     claims.Email,
			Role:      strings.ToLower(strings.TrimSpace(claims.Role)),
			VehicleID: claims.BusID,
		}
		c.Set(identityKey, id)
		c.Set(roleKey, id.Role)
		c.Next()
	}
}

// CurrentIdentity returns the identity set by RequireAuth.
func CurrentIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

// IssueToken signs an identity the same way the auth service does.
func IssueToken(secret []byte, id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		BusID:  id.VehicleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      "unauthorized: " + msg,
		"request_id": GetRequestID(c),
	})
}
