package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/models"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contextKey string

const UserIDKey = contextKey("userID")
const UserRoleKey = contextKey("userRole")
const RequestIDKey = contextKey("requestID")

const (
	AccessTokenTTL    = 15 * time.Minute
	AppAccessTokenTTL = 30 * 24 * time.Hour
	RefreshTokenTTL   = 7 * 24 * time.Hour
	ResetTokenTTL     = time.Hour

	purposeReset = "password_reset"
)

func jwtSecret() ([]byte, error) {
	secret := config.Get().JWTSecret
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return []byte(secret), nil
}

// GenerateAccessToken issues a short-lived access token (15 minutes).
func GenerateAccessToken(userID uint, role string) (string, error) {
	return GenerateAccessTokenWithExpiry(userID, role, AccessTokenTTL)
}

// GenerateAccessTokenWithExpiry issues an access token with custom expiry duration
func GenerateAccessTokenWithExpiry(userID uint, role string, expiry time.Duration) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	cfg := config.Get()
	now := time.Now()
	jti, err := models.RandomToken(16)
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"id":   userID,
		"role": role,
		"exp":  now.Add(expiry).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  jti,
		"aud":  cfg.JWTAud,
		"iss":  cfg.JWTIss,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// GeneratePasswordResetToken issues a one-hour token that only the reset
// endpoint accepts.
func GeneratePasswordResetToken(userID uint) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	jti, err := models.RandomToken(16)
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"id":      userID,
		"purpose": purposeReset,
		"exp":     now.Add(ResetTokenTTL).Unix(),
		"iat":     now.Unix(),
		"jti":     jti,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParsePasswordResetToken returns the user id and jti of a valid reset token.
func ParsePasswordResetToken(tokenStr string) (uint, string, time.Time, error) {
	claims, err := parseHS256(tokenStr)
	if err != nil {
		return 0, "", time.Time{}, err
	}
	if p, _ := claims["purpose"].(string); p != purposeReset {
		return 0, "", time.Time{}, errors.New("invalid token purpose")
	}
	jti, _ := claims["jti"].(string)
	if jti != "" && isRevoked(jti) {
		return 0, "", time.Time{}, errors.New("token revoked")
	}
	exp, _ := claims.GetExpirationTime()
	var expAt time.Time
	if exp != nil {
		expAt = exp.Time
	}
	uid, err := ClaimUserID(claims)
	return uid, jti, expAt, err
}

func parseHS256(tokenStr string) (jwt.MapClaims, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}
	token, err := jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Require exact HS256 algorithm to avoid algorithm confusion.
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", jwt.ErrTokenExpired)
		}
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// ValidateAccessToken parses the token, checks aud/iss against configuration
// and rejects revoked jtis.
func ValidateAccessToken(tokenStr string) (jwt.MapClaims, error) {
	claims, err := parseHS256(tokenStr)
	if err != nil {
		return nil, err
	}
	if _, ok := claims["purpose"]; ok {
		return nil, errors.New("invalid token")
	}
	cfg := config.Get()
	if cfg.JWTAud != "" {
		aud, err := claims.GetAudience()
		if err != nil {
			return nil, errors.New("invalid audience claim format")
		}
		found := false
		for _, a := range aud {
			if a == cfg.JWTAud {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.New("invalid audience")
		}
	}
	if cfg.JWTIss != "" {
		if iss, _ := claims["iss"].(string); iss != cfg.JWTIss {
			return nil, errors.New("invalid issuer")
		}
	}
	if jti, ok := claims["jti"].(string); ok && jti != "" && isRevoked(jti) {
		return nil, errors.New("token revoked")
	}
	return claims, nil
}

// isRevoked checks the Redis blacklist first, then the revoked_tokens table.
// Store outages never fail authentication.
func isRevoked(jti string) bool {
	if RedisClient != nil {
		res, err := RedisClient.Get(context.Background(), "jwt:blacklist:"+jti).Result()
		if err == nil && res == "1" {
			return true
		}
		if err == nil {
			return false
		}
	}
	if database.DB != nil {
		var rec models.RevokedToken
		err := database.DB.Where("id = ?", jti).First(&rec).Error
		return err == nil
	}
	return false
}

// ClaimUserID extracts the numeric "id" claim.
func ClaimUserID(claims jwt.MapClaims) (uint, error) {
	switch v := claims["id"].(type) {
	case float64:
		return uint(v), nil
	case int:
		return uint(v), nil
	case string:
		var n uint64
		_, err := fmt.Sscanf(v, "%d", &n)
		return uint(n), err
	}
	return 0, errors.New("invalid token payload")
}

// ClaimTTL is how long the token in claims stays valid.
func ClaimTTL(claims jwt.MapClaims) time.Duration {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	if ttl := time.Until(exp.Time); ttl > 0 {
		return ttl
	}
	return 0
}

// GenerateRefreshToken creates a refresh token row and returns its opaque id.
func GenerateRefreshToken(db *gorm.DB, userID uint) (string, error) {
	if db == nil {
		return "", errors.New("database not initialized")
	}
	rt, err := models.NewRefreshToken(userID, RefreshTokenTTL)
	if err != nil {
		return "", err
	}
	if err := db.Create(rt).Error; err != nil {
		return "", err
	}
	return rt.ID, nil
}

// ValidateRefreshToken checks whether a refresh token exists and is not expired/revoked
func ValidateRefreshToken(db *gorm.DB, id string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := db.Where("id = ?", id).First(&rt).Error; err != nil {
		return nil, err
	}
	if rt.Revoked {
		return nil, errors.New("refresh token revoked")
	}
	if time.Now().After(rt.ExpiresAt) {
		return nil, errors.New("refresh token expired")
	}
	return &rt, nil
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")), true
}

// RevokeJTI blacklists a jti until ttl passes. Redis when configured, the
// revoked_tokens table otherwise.
func RevokeJTI(jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	if RedisClient != nil {
		return RedisClient.Set(context.Background(), "jwt:blacklist:"+jti, "1", ttl).Err()
	}
	if database.DB != nil {
		now := time.Now().UTC()
		rec := &models.RevokedToken{ID: jti, RevokedAt: now, ExpiresAt: now.Add(ttl)}
		return database.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"revoked_at", "expires_at"}),
		}).Create(rec).Error
	}
	return errors.New("no revocation store configured")
}

// RevokeBearer revokes the access token on the request, if any.
func RevokeBearer(r *http.Request) {
	tokenStr, ok := BearerToken(r)
	if !ok {
		return
	}
	claims, err := parseHS256(tokenStr)
	if err != nil {
		return
	}
	if jti, ok := claims["jti"].(string); ok && jti != "" {
		_ = RevokeJTI(jti, ClaimTTL(claims))
	}
}

// GetUserID returns the authenticated user id from the request context.
func GetUserID(r *http.Request) (uint, bool) {
	v := r.Context().Value(UserIDKey)
	id, ok := v.(uint)
	return id, ok
}

// GetUserRole returns the role claim stored by the auth middleware.
func GetUserRole(r *http.Request) string {
	role, _ := r.Context().Value(UserRoleKey).(string)
	return role
}
