package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"stockledger/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"
)

// Roles, from least to most privileged.
const (
	RoleOperator = "operator"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// JWTClaims are the custom claims embedded in every access token.
// Tokens are issued by the external identity service; TenantID scopes every
// ledger operation.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs claims with secret (HS256), valid for ttl.
func IssueToken(secret string, claims JWTClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeUnauthorized, "authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeUnauthorized, "invalid or expired token"))
			return
		}
		if _, err := uuid.Parse(claims.TenantID); err != nil || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeUnauthorized, "token carries no tenant or user"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New(apierror.CodeForbidden, "insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

var ErrNoClaims = errors.New("request is not authenticated")

// Identity returns the tenant and user of the authenticated caller.
func Identity(c *gin.Context) (tenantID uuid.UUID, userID string, err error) {
	claims := GetClaims(c)
	if claims == nil {
		return uuid.Nil, "", ErrNoClaims
	}
	tenantID, err = uuid.Parse(claims.TenantID)
	if err != nil {
		return uuid.Nil, "", ErrNoClaims
	}
	return tenantID, claims.UserID, nil
}
