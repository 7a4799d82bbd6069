package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is what a session token carries.
type Claims struct {
	UserID    int64
	ID        string
	ExpiresAt time.Time
}

// TokenService signs and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *TokenService) Generate(userID int64) (string, Claims, error) {
	now := s.now()
	c := Claims{
		UserID:    userID,
		ID:        uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"jti":     c.ID,
		"exp":     c.ExpiresAt.Unix(),
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, c, nil
}

func (s *TokenService) Parse(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil || !token.Valid {
		return Claims{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}

	// validate time-based claims
	now := s.now().Unix()
	exp, ok := claims["exp"].(float64)
	if !ok || int64(exp) < now {
		return Claims{}, errors.New("token expired")
	}
	if nbf, ok := claims["nbf"].(float64); ok {
		if int64(nbf) > now {
			return Claims{}, errors.New("token not valid yet")
		}
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return Claims{}, errors.New("user_id not found")
	}
	jti, _ := claims["jti"].(string)

	return Claims{
		UserID:    int64(userID),
		ID:        jti,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}
