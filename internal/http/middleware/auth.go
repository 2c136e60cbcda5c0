package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetcore/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorKey = "actor"

// Claims is the token payload the core trusts to build a domain.Actor.
type Claims struct {
	UserID int64  `json:"user_id"`
	OrgID  int64  `json:"org_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for actor.
func IssueToken(secret string, actor domain.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: actor.UserID,
		OrgID:  actor.OrgID,
		Role:   strings.ToLower(strings.TrimSpace(actor.Role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(actor.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenStr and returns the actor it carries.
func ParseToken(secret, tokenStr string) (domain.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Actor{}, err
	}
	if !token.Valid {
		return domain.Actor{}, errors.New("token tidak valid")
	}
	actor := domain.Actor{UserID: claims.UserID, OrgID: claims.OrgID, Role: claims.Role}
	if actor.UserID <= 0 || actor.OrgID <= 0 || strings.TrimSpace(actor.Role) == "" {
		return domain.Actor{}, fmt.Errorf("claim token tidak lengkap")
	}
	return actor, nil
}

// Auth requires a valid bearer token and stores the actor on the context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "token tidak ditemukan")
			return
		}
		actor, err := ParseToken(secret, strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "token tidak valid atau kedaluwarsa")
			return
		}
		c.Set(actorKey, actor)
		c.Set("userRole", actor.Role)
		c.Next()
	}
}

// ActorFrom returns the actor set by Auth.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	if c == nil {
		return domain.Actor{}, false
	}
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// RequireRoles is role-based access control; it must run after Auth.
//
//	r.DELETE("/reservations/:id", RequireRoles("owner", "admin"), handler)
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "role tidak ditemukan pada context")
			return
		}
		if !actor.HasRole(allowedRoles...) {
			abortJSON(c, http.StatusForbidden, "forbidden", "role tidak diizinkan")
			return
		}
		c.Next()
	}
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      message,
		"code":       code,
		"message":    message,
		"request_id": GetRequestID(c),
	})
}
