// Package service implements issuance and verification of the two bearer token kinds.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/userhub/backend/internal/models"
)

// Token kinds. Each kind is signed with its own secret.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	// ErrTokenExpired means the signature checked out but the lifetime has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers bad signatures, malformed tokens and wrong kinds.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the identity payload embedded in every token at issuance time
type Claims struct {
	UserID int
	Email  string
	Role   models.Role
}

// TokenService signs and verifies access and refresh tokens
type TokenService struct {
	accessSecret       string
	refreshSecret      string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

// NewTokenService creates a new token service
func NewTokenService(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *TokenService {
	return &TokenService{
		accessSecret:       accessSecret,
		refreshSecret:      refreshSecret,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

// IssuePair generates an access and a refresh token carrying the same claims
func (ts *TokenService) IssuePair(claims Claims) (string, string, error) {
	accessToken, err := ts.IssueAccess(claims)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := ts.IssueRefresh(claims)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// IssueAccess creates a short-lived access token
func (ts *TokenService) IssueAccess(claims Claims) (string, error) {
	return ts.sign(claims, KindAccess, ts.accessSecret, ts.accessTokenExpiry)
}

// IssueRefresh creates a long-lived refresh token
func (ts *TokenService) IssueRefresh(claims Claims) (string, error) {
	return ts.sign(claims, KindRefresh, ts.refreshSecret, ts.refreshTokenExpiry)
}

func (ts *TokenService) sign(claims Claims, kind, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	mapClaims := jwt.MapClaims{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    string(claims.Role),
		"type":    kind,
		"iat":     now.Unix(),
		"exp":     now.Add(expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, nil
}

// Verify parses a token of the given kind and returns its claims.
// A valid signature with a passed lifetime yields ErrTokenExpired; every other
// failure (bad signature, malformed structure, wrong kind) yields ErrTokenInvalid.
func (ts *TokenService) Verify(tokenString, kind string) (*Claims, error) {
	secret := ts.accessSecret
	if kind == KindRefresh {
		secret = ts.refreshSecret
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		// A forged token must never be reported as merely expired
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenInvalid
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	// Check token kind
	tokenType, ok := mapClaims["type"].(string)
	if !ok || tokenType != kind {
		return nil, ErrTokenInvalid
	}

	// Extract userID (JWT claims decode numbers as float64)
	userID, ok := mapClaims["user_id"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	email, ok := mapClaims["email"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}

	roleStr, ok := mapClaims["role"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}
	role := models.Role(roleStr)
	if !role.Valid() {
		return nil, ErrTokenInvalid
	}

	return &Claims{
		UserID: int(userID),
		Email:  email,
		Role:   role,
	}, nil
}
