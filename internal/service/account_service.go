package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Tryboy869/gitradar/internal/auth"
	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/logger"
	"github.com/Tryboy869/gitradar/internal/port"
)

const minPasswordLength = 8

// Session 登录或注册成功后返回给客户端
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccountService 注册、登录和偏好设置
type AccountService struct {
	users  port.UserStore
	tokens *auth.TokenIssuer
	log    logger.Logger
}

// NewAccountService 创建账号服务
func NewAccountService(users port.UserStore, tokens *auth.TokenIssuer, log logger.Logger) *AccountService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AccountService{users: users, tokens: tokens, log: log.With(logger.String("component", "account"))}
}

// Register 创建账号并直接签发令牌
func (a *AccountService) Register(ctx context.Context, email, username, password string) (*Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, common.NewError(common.ErrCodeInvalidInput, "邮箱格式不正确")
	}
	if len(password) < minPasswordLength {
		return nil, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("密码至少 %d 位", minPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("密码不能超过 %d 字节", auth.MaxPasswordBytes))
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeInternal, "注册失败", err)
	}

	user := &domain.UserAccount{Email: email, Username: username, PasswordHash: hash}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	a.log.Info("新用户注册", logger.String("user_id", user.ID))
	return a.issue(user)
}

// Login 邮箱不存在和密码错误返回同样的错误
func (a *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := a.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if common.CodeOf(err) == common.ErrCodeNotFound {
			return nil, common.NewError(common.ErrCodeUnauthorized, "邮箱或密码错误")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, common.NewError(common.ErrCodeUnauthorized, "邮箱或密码错误")
	}
	return a.issue(user)
}

// Authenticate 校验令牌并返回用户 ID
func (a *AccountService) Authenticate(token string) (string, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Preferences 读取偏好, 存储内容无法解析时返回空偏好
func (a *AccountService) Preferences(ctx context.Context, userID string) (domain.UserPreferences, error) {
	raw, err := a.users.ReadPreferences(ctx, userID)
	if err != nil {
		return domain.UserPreferences{}, err
	}
	return decodePreferences(raw), nil
}

// UpdatePreferences 校验后整体覆盖
func (a *AccountService) UpdatePreferences(ctx context.Context, userID string, prefs domain.UserPreferences) error {
	for _, cat := range prefs.Categories {
		if !cat.IsValid() {
			return common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("未知分类: %s", cat))
		}
	}
	if prefs.MinStars < 0 {
		return common.NewError(common.ErrCodeInvalidInput, "min_stars 不能为负数")
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return common.WrapError(common.ErrCodeInternal, "序列化偏好失败", err)
	}
	return a.users.UpdatePreferences(ctx, userID, data)
}

func (a *AccountService) issue(user *domain.UserAccount) (*Session, error) {
	token, expires, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeInternal, "签发令牌失败", err)
	}
	return &Session{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: expires,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
