package auth

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// minSecretLength HS256 密钥最小长度
const minSecretLength = 32

// TokenClaims JWT 令牌声明
type TokenClaims struct {
	Email  string
	UserID uint
	Type   string
	ID     string
	Exp    int64
	Iat    int64
}

// TokenConfig 保存 JWT 配置
type TokenConfig struct {
	Secret    []byte
	ExpiresIn time.Duration
}

// JWTService JWT Token 服务
type JWTService struct {
	config TokenConfig
	mutex  sync.RWMutex
}

// NewJWTService 从配置创建 JWT 服务，开发环境未配置密钥时生成临时密钥
func NewJWTService(cfg *config.Config) (*JWTService, error) {
	secret := cfg.JWTSecret
	if secret == "" && !config.IsProduction() {
		token, err := utils.GenerateRandomToken(minSecretLength)
		if err != nil {
			return nil, err
		}
		secret = token
		log.Println("[JWT] jwt_secret is empty, using a temporary secret; tokens will not survive a restart")
	}
	return NewJWTServiceWithConfig(TokenConfig{Secret: []byte(secret), ExpiresIn: cfg.JWTExpiresIn})
}

// NewJWTServiceWithConfig 使用指定配置创建
func NewJWTServiceWithConfig(cfg TokenConfig) (*JWTService, error) {
	svc := &JWTService{}
	if err := svc.SetConfig(cfg); err != nil {
		return nil, err
	}
	return svc, nil
}

// GetConfig 获取当前 JWT 配置（只读）
func (s *JWTService) GetConfig() TokenConfig {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return TokenConfig{
		Secret:    append([]byte{}, s.config.Secret...),
		ExpiresIn: s.config.ExpiresIn,
	}
}

// SetConfig 替换配置
func (s *JWTService) SetConfig(cfg TokenConfig) error {
	if len(cfg.Secret) < minSecretLength {
		return fmt.Errorf("JWT secret must be at least %d characters long, got %d", minSecretLength, len(cfg.Secret))
	}
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = 2 * time.Hour
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.config = cfg
	return nil
}

// GenerateAccessToken 为用户签发访问令牌
func (s *JWTService) GenerateAccessToken(user *models.User) (string, time.Time, error) {
	config := s.GetConfig()

	now := time.Now()
	expiry := now.Add(config.ExpiresIn)
	claims := jwt.MapClaims{
		"email":   user.Email,
		"user_id": user.ID,
		"type":    "access",
		"jti":     uuid.NewString(),
		"exp":     expiry.Unix(),
		"iat":     now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, expiry, nil
}

// ParseToken 解析和验证 JWT 令牌
func (s *JWTService) ParseToken(tokenString string) (jwt.MapClaims, error) {
	config := s.GetConfig()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ExtractClaims 解析访问令牌的声明
func (s *JWTService) ExtractClaims(tokenString string) (*TokenClaims, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != "access" {
		return nil, errors.New("not an access token")
	}

	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)
	userIDFloat, _ := claims["user_id"].(float64)
	expFloat, _ := claims["exp"].(float64)
	iatFloat, _ := claims["iat"].(float64)

	return &TokenClaims{
		Email:  email,
		UserID: uint(userIDFloat),
		Type:   tokenType,
		ID:     jti,
		Exp:    int64(expFloat),
		Iat:    int64(iatFloat),
	}, nil
}
