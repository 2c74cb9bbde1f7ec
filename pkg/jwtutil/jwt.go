// Package jwtutil signs and validates the two token kinds of the
// authentication flow. A long token is issued at login and proves the
// credential exchange; a short token is issued by the token endpoint and is
// the only kind accepted on API routes. Both carry the account's session key
// so a key rotation invalidates everything issued before it.
package jwtutil

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// TokenKindLong marks a credential proof obtained at login.
	TokenKindLong = "long"
	// TokenKindShort marks a session proof obtained from the token exchange.
	TokenKindShort = "short"
)

var (
	// ErrWrongTokenKind is returned when a token of one kind is presented
	// where the other is required.
	ErrWrongTokenKind = errors.New("wrong token kind")

	signingKey []byte
	longTTL    = 720 * time.Hour
	shortTTL   = time.Hour
)

// AuthClaims represents the JWT claims carried by both token kinds. Role and
// school are deliberately absent: they are re-read from the account record on
// every request.
type AuthClaims struct {
	UserID     uint   `json:"user_id"`
	SessionKey string `json:"session_key"`
	Kind       string `json:"kind"`
	jwt.RegisteredClaims
}

// Initialize configures the signing key and token lifetimes.
func Initialize(key string, longHours, shortHours int) {
	signingKey = []byte(key)
	if longHours > 0 {
		longTTL = time.Duration(longHours) * time.Hour
	}
	if shortHours > 0 {
		shortTTL = time.Duration(shortHours) * time.Hour
	}
}

// GenerateLongToken creates a long-lived credential token.
func GenerateLongToken(userID uint, sessionKey string) (string, error) {
	return generate(userID, sessionKey, TokenKindLong, longTTL)
}

// GenerateShortToken creates a short-lived session token.
func GenerateShortToken(userID uint, sessionKey string) (string, error) {
	return generate(userID, sessionKey, TokenKindShort, shortTTL)
}

func generate(userID uint, sessionKey, kind string, ttl time.Duration) (string, error) {
	claims := AuthClaims{
		UserID:     userID,
		SessionKey: sessionKey,
		Kind:       kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ValidateLongToken validates a credential token; short tokens are rejected.
func ValidateLongToken(tokenString string) (*AuthClaims, error) {
	return validate(tokenString, TokenKindLong)
}

// ValidateShortToken validates a session token; long tokens are rejected.
func ValidateShortToken(tokenString string) (*AuthClaims, error) {
	return validate(tokenString, TokenKindShort)
}

func validate(tokenString, kind string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return signingKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}
