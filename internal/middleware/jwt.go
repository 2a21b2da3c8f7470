package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
	// ContextKeyToken is the Gin context key for the raw bearer token,
	// forwarded to the remote collaborators.
	ContextKeyToken = "bearer_token"
)

// Claims extends JWT standard claims with the fields the engine reads.
// Tokens are issued by the auth collaborator with the shared secret.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Subscribed bool   `json:"subscribed"`
}

// User converts the claims into the engine's user model.
func (c *Claims) User() model.User {
	return model.User{ID: c.UserID, Name: c.Name, Subscribed: c.Subscribed}
}

// RequireJWT validates a bearer token from the Authorization header, or
// from the ?token query parameter for WebSocket upgrade requests.
func RequireJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
				return
			}
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		if !token.Valid || claims.UserID == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyToken, tokenStr)
		c.Next()
	}
}

// GetClaims retrieves validated claims from the Gin context, or nil.
func GetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetToken retrieves the raw bearer token from the Gin context.
func GetToken(c *gin.Context) string {
	v, ok := c.Get(ContextKeyToken)
	if !ok {
		return ""
	}
	token, _ := v.(string)
	return token
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
