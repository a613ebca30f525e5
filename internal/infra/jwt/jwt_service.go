package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/contractflow/contractflow/internal/ports"
	"github.com/golang-jwt/jwt/v5"
)

// Config holds token signing settings
type Config struct {
	Secret         string
	Algorithm      string
	AccessTokenTTL time.Duration
	Issuer         string
}

type JWTService struct {
	config     Config
	hmacSecret []byte
	method     jwt.SigningMethod
	now        func() time.Time
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

func NewJWTService(cfg Config) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 24 * time.Hour
	}

	service := &JWTService{
		config:     cfg,
		hmacSecret: []byte(cfg.Secret),
		now:        time.Now,
	}

	switch cfg.Algorithm {
	case "", "HS256":
		service.method = jwt.SigningMethodHS256
	case "HS384":
		service.method = jwt.SigningMethodHS384
	case "HS512":
		service.method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm: %s", cfg.Algorithm)
	}

	return service, nil
}

func (s *JWTService) GenerateAccessToken(claims ports.TokenClaims) (string, error) {
	now := s.now()
	tokenClaims := jwt.MapClaims{
		"sub":      claims.Subject,
		"username": claims.Username,
		"role":     claims.Role,
		"exp":      now.Add(s.config.AccessTokenTTL).Unix(),
		"iat":      now.Unix(),
		"type":     "access",
	}
	if s.config.Issuer != "" {
		tokenClaims["iss"] = s.config.Issuer
	}

	token := jwt.NewWithClaims(s.method, tokenClaims)
	tokenString, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.hmacSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{s.method.Alg()}))
	if err != nil {
		return nil, s.handleValidationError(err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return nil, ErrInvalidToken
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "access" {
		return nil, ErrInvalidToken
	}

	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)

	return &ports.TokenClaims{
		Subject:  subject,
		Username: username,
		Role:     role,
	}, nil
}

func (s *JWTService) handleValidationError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrInvalidToken
}
