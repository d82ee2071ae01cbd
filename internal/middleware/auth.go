package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/repos"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/requestdata"
)

type AuthMiddleware struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	secret   []byte
}

func NewAuthMiddleware(log *logger.Logger, userRepo repos.UserRepo) *AuthMiddleware {
	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		secret = "defaultsecret"
	}
	return &AuthMiddleware{
		log:      log.With("middleware", "AuthMiddleware"),
		userRepo: userRepo,
		secret:   []byte(secret),
	}
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// caller's identity to the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := am.identityFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "missing or invalid token",
			})
			return
		}
		c.Request = c.Request.WithContext(requestdata.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// OptionalAuth attaches an identity when a valid token is present and lets
// anonymous requests through untouched. Report creation is the one write path
// open to guests.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, err := am.identityFromRequest(c); err == nil {
			c.Request = c.Request.WithContext(requestdata.WithIdentity(c.Request.Context(), identity))
		}
		c.Next()
	}
}

func (am *AuthMiddleware) identityFromRequest(c *gin.Context) (*requestdata.Identity, error) {
	tokenString := extractBearerToken(c)
	if tokenString == "" {
		return nil, fmt.Errorf("no token")
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("token subject is not a user id: %w", err)
	}

	// Tokens outlive accounts; make sure this one still maps to a live user.
	exists, err := am.userRepo.Exists(c.Request.Context(), nil, userID)
	if err != nil {
		am.log.Warn("user existence check failed", "error", err)
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user no longer exists")
	}

	return &requestdata.Identity{
		UserID:       userID,
		IsAdmin:      claimBool(claims, "is_admin"),
		IsAgencyUser: claimBool(claims, "is_agency_user"),
	}, nil
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return c.Query("token")
}

func claimBool(claims jwt.MapClaims, key string) bool {
	if v, ok := claims[key].(bool); ok {
		return v
	}
	return false
}
