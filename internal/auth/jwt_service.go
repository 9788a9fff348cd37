package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// AccessTokenExpiry is the duration for which access tokens are valid.
	AccessTokenExpiry = 24 * time.Hour
	// RefreshTokenExpiry is the duration for which refresh tokens are valid.
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

var (
	errInvalidToken    = errors.New("invalid token")
	errMissingTokenID  = errors.New("token ID not found")
	errRefreshAsAccess = errors.New("refresh token used as access token")
)

// ContextKey is where the secured route group stores the validated *Claims.
const ContextKey = "user"

// Claims represents JWT claims.
type Claims struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// GenerateAccessToken issues a bearer token for the user.
func (s *JWTService) GenerateAccessToken(userID uint, username string) (string, error) {
	return s.sign(userID, username, "", AccessTokenExpiry)
}

// GenerateRefreshToken issues a refresh token. Its ID (JTI) is returned
// separately so the caller can record it in the token store.
func (s *JWTService) GenerateRefreshToken(userID uint, username string) (tokenID string, token string, err error) {
	tokenID = uuid.NewString()
	token, err = s.sign(userID, username, tokenID, RefreshTokenExpiry)
	return tokenID, token, err
}

func (s *JWTService) sign(userID uint, username, tokenID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// ExtractTokenID extracts the token ID (JTI) from a refresh token.
func (s *JWTService) ExtractTokenID(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	if claims.ID == "" {
		return "", errMissingTokenID
	}
	return claims.ID, nil
}

// ParseToken adapts ValidateToken to echo-jwt's ParseTokenFunc. Refresh
// tokens are refused so they cannot be used as bearer tokens.
func (s *JWTService) ParseToken(tokenString string) (interface{}, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.ID != "" {
		return nil, errRefreshAsAccess
	}
	return claims, nil
}
