package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vapecity/vapecity-api/config"
)

// AdminTokenTTL is how long an admin session token stays valid
const AdminTokenTTL = 24 * time.Hour

const (
	adminSubject   = "admin"
	claimsKey      = "validated_claims"
	isAdminKey     = "is_admin"
	invalidTokenJS = `{"success":false,"error":"Invalid or missing admin token","code":"INVALID_TOKEN"}`
)

// AdminClaims contains the custom data we put in admin tokens.
type AdminClaims struct {
	Admin bool `json:"admin"`
}

// Validate rejects tokens that were not issued for the admin panel.
func (c AdminClaims) Validate(ctx context.Context) error {
	if !c.Admin {
		return errors.New("token does not carry the admin claim")
	}
	return nil
}

type adminTokenClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs an HS256 admin token valid for AdminTokenTTL from now
func IssueAdminToken(cfg *config.Config, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(AdminTokenTTL)
	claims := adminTokenClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWTIssuer,
			Subject:   adminSubject,
			Audience:  jwt.ClaimStrings{cfg.JWTAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func newAdminValidator(cfg *config.Config) *validator.Validator {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &AdminClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		panic("failed to set up the jwt validator: " + err.Error())
	}
	return jwtValidator
}

// EnsureAdmin is a middleware that requires a valid admin bearer token.
func EnsureAdmin(cfg *config.Config) gin.HandlerFunc {
	jwtValidator := newAdminValidator(cfg)

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Debug("rejected admin token", "error", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(invalidTokenJS)); writeErr != nil {
			slog.Warn("failed to write error response", "error", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			c.Request = r
			c.Set(claimsKey, token)
			c.Set(isAdminKey, true)
			passed = true
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAdmin marks the request as admin when it carries a valid admin
// token and lets it through unauthenticated otherwise. A token that is
// present but invalid is still rejected.
func OptionalAdmin(cfg *config.Config) gin.HandlerFunc {
	ensure := EnsureAdmin(cfg)
	return func(c *gin.Context) {
		token, err := jwtmiddleware.AuthHeaderTokenExtractor(c.Request)
		if err != nil || strings.TrimSpace(token) == "" {
			if err != nil {
				c.Data(http.StatusUnauthorized, "application/json", []byte(invalidTokenJS))
				c.Abort()
				return
			}
			c.Next()
			return
		}
		ensure(c)
	}
}

// IsAdmin reports whether the request was authenticated with an admin token
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(isAdminKey)
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// MarkAdmin sets the admin flag on a context, used by tests that bypass token checks
func MarkAdmin(c *gin.Context) {
	c.Set(isAdminKey, true)
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
