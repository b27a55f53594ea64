package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Tryboy869/gitradar/internal/common"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	issuer     = "gitradar"
	defaultTTL = 24 * time.Hour

	// MaxPasswordBytes bcrypt 只接受 72 字节以内的明文
	MaxPasswordBytes = 72
)

// HashPassword bcrypt 哈希, cost 使用默认值
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("密码哈希失败: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 校验明文与哈希是否匹配
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Claims 访问令牌内容
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer 签发和校验 HS256 令牌
type TokenIssuer struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewTokenIssuer secret 不能为空
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("JWT secret 不能为空")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, nowFunc: time.Now}, nil
}

// Issue 为用户签发令牌
func (t *TokenIssuer) Issue(userID, email string) (string, time.Time, error) {
	now := t.nowFunc()
	expires := now.Add(t.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("签发令牌失败: %w", err)
	}
	return signed, expires, nil
}

// Verify 校验签名、算法和有效期, 失败统一返回 UNAUTHORIZED
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, common.WrapError(common.ErrCodeUnauthorized, "令牌无效", err)
	}
	if !claims.VerifyExpiresAt(t.nowFunc(), true) {
		return nil, common.NewError(common.ErrCodeUnauthorized, "令牌已过期")
	}
	if claims.Subject == "" {
		return nil, common.NewError(common.ErrCodeUnauthorized, "令牌缺少 subject")
	}
	return claims, nil
}
