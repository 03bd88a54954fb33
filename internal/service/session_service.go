package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type SessionServiceConfig struct {
	Secret string
	Expiry time.Duration
}

// SessionService mints and validates the application session tokens used to
// resolve the authenticated user in link flows. It is constructor-injected
// everywhere it is needed; there is no ambient session state.
type SessionService struct {
	config SessionServiceConfig
}

func NewSessionService(config SessionServiceConfig) *SessionService {
	return &SessionService{
		config: config,
	}
}

func (ss *SessionService) Init() error {
	if ss.config.Secret == "" {
		return &ConfigurationError{Setting: "session-secret"}
	}

	if ss.config.Expiry == 0 {
		ss.config.Expiry = 24 * time.Hour
	}

	return nil
}

// CreateSession returns a signed token for the given user.
func (ss *SessionService) CreateSession(userID string) (string, error) {
	if userID == "" {
		return "", &ValidationError{Message: "User ID is required for a session"}
	}

	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ss.config.Expiry)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(ss.config.Secret))
}

// ValidateSession returns the user id a token was minted for, or an error if
// the token is invalid or expired.
func (ss *SessionService) ValidateSession(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ss.config.Secret), nil
	})

	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)

	if !ok || claims.Subject == "" {
		return "", errors.New("session token has no subject")
	}

	return claims.Subject, nil
}

func (ss *SessionService) Expiry() time.Duration {
	return ss.config.Expiry
}
