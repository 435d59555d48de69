package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yoockh/buildmate/internal/utils"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func abort(c *gin.Context, status int, code utils.Code, msg string) {
	c.AbortWithStatusJSON(status, apiError{Code: code, Message: msg})
}

// JWTConfig describes how Supabase access tokens are verified. Issuer and Audience are optional.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

func JWTConfigFromEnv() JWTConfig {
	return JWTConfig{
		Secret:   os.Getenv("SUPABASE_JWT_SECRET"),
		Issuer:   os.Getenv("SUPABASE_JWT_ISSUER"),
		Audience: os.Getenv("SUPABASE_JWT_AUDIENCE"),
	}
}

type supabaseClaims struct {
	jwt.RegisteredClaims
	Role        string         `json:"role"`         // "authenticated" / "anon"
	AppMetadata map[string]any `json:"app_metadata"` // {"role":"admin"} grants admin routes
}

// appRole is the application role from app_metadata, "user" when absent.
func (c *supabaseClaims) appRole() string {
	if v, ok := c.AppMetadata["role"].(string); ok && v != "" {
		return v
	}
	return "user"
}

// JWTAuth verifies the HS256 bearer token and stores "user_id" (the sub claim) and "role"
// on the gin context.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(c *gin.Context) {
		if cfg.Secret == "" {
			abort(c, http.StatusInternalServerError, utils.CodeInternal, "SUPABASE_JWT_SECRET is not set")
			return
		}

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "missing bearer token")
			return
		}

		claims := &supabaseClaims{}
		tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil })
		switch {
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token issuer")
			return
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token audience")
			return
		case err != nil || tok == nil || !tok.Valid:
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token")
			return
		}

		if claims.Subject == "" {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "missing subject")
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("role", claims.appRole())
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return raw, raw != ""
}
