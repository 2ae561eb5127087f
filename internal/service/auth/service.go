// Package auth 提供管理端认证（口令校验与 JWT 签发）
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/askbase/askbase/internal/config"
	"github.com/askbase/askbase/internal/service/types"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = time.Hour

// Service 认证服务
type Service struct {
	password string
	secret   []byte
	tokenTTL time.Duration
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewService 创建认证服务
// 未配置 jwtSecret 时生成随机密钥（重启后已签发的令牌失效）
func NewService(cfg *config.AdminConfig) (*Service, error) {
	if cfg.Password == "" {
		return nil, fmt.Errorf("admin.password is required")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		randomBytes := make([]byte, 32)
		if _, err := rand.Read(randomBytes); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = base64.StdEncoding.EncodeToString(randomBytes)
	}

	ttl := time.Duration(cfg.TokenTTL) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &Service{
		password: cfg.Password,
		secret:   []byte(secret),
		tokenTTL: ttl,
	}, nil
}

// VerifyPassword 校验管理员口令（常数时间比较）
func (s *Service) VerifyPassword(password string) error {
	if subtle.ConstantTimeCompare([]byte(s.password), []byte(password)) != 1 {
		return fmt.Errorf("%w: invalid admin password", types.ErrAuth)
	}
	return nil
}

// Login 校验口令并签发访问令牌
func (s *Service) Login(ctx context.Context, password string) (*LoginResponse, error) {
	if err := s.VerifyPassword(password); err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":  "admin",
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
		"type": "access",
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateToken 验证访问令牌
func (s *Service) ValidateToken(ctx context.Context, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: invalid token", types.ErrAuth)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("%w: invalid token claims", types.ErrAuth)
	}
	if sub, _ := claims["sub"].(string); sub != "admin" {
		return fmt.Errorf("%w: invalid token subject", types.ErrAuth)
	}

	return nil
}
