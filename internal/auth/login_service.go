package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/database/repo/accounts"
	"github.com/anoixa/image-admin/utils"
	cryptopackage "github.com/anoixa/image-admin/utils/crypto"
)

var (
	// ErrInvalidCredentials 邮箱或密码错误，或不是员工账号
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactive 账号已停用
	ErrInactive = errors.New("account is inactive")
	// ErrUnauthorized 令牌无效或用户已不能进入后台
	ErrUnauthorized = errors.New("unauthorized")
)

// dummyHash 用户不存在时仍执行一次哈希比较
var dummyHash, _ = cryptopackage.GenerateFromPassword("image-admin-dummy-password")

// LoginResult 登录结果
type LoginResult struct {
	User              *models.User
	AccessToken       string
	AccessTokenExpiry time.Time
}

// LoginService 后台登录服务
type LoginService struct {
	accountsRepo *accounts.Repository
	jwtService   *JWTService
}

// NewLoginService 创建新的登录服务
func NewLoginService(accountsRepo *accounts.Repository, jwtService *JWTService) *LoginService {
	return &LoginService{accountsRepo: accountsRepo, jwtService: jwtService}
}

// ValidateCredentials 验证用户凭据，用户不存在时返回 nil
func (s *LoginService) ValidateCredentials(ctx context.Context, email, password string) (*models.User, bool, error) {
	user, err := s.accountsRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		_, _ = cryptopackage.ComparePasswordAndHash(password, dummyHash)
		return nil, false, nil
	}
	return user, user.CheckPassword(password), nil
}

// Login 只允许启用的员工账号登录
func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, valid, err := s.ValidateCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactive
	}
	if !user.IsStaff {
		return nil, ErrInvalidCredentials
	}

	if cryptopackage.NeedsRehash(user.Password) {
		if err := user.SetPassword(password); err == nil {
			if err := s.accountsRepo.UpdatePassword(ctx, user); err != nil {
				utils.LogIfDevf("[Login] failed to rehash password for %s: %v", utils.SanitizeLogEmail(user.Email), err)
			}
		}
	}
	if err := s.accountsRepo.UpdateLastLogin(ctx, user, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	token, expiry, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, AccessToken: token, AccessTokenExpiry: expiry}, nil
}

// Authenticate 校验访问令牌并加载当前用户
func (s *LoginService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwtService.ExtractClaims(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.accountsRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanAccessAdmin() {
		return nil, ErrUnauthorized
	}
	return user, nil
}
