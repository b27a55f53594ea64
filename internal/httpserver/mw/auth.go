package mw

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Authenticator 校验令牌并返回用户 ID
type Authenticator interface {
	Authenticate(token string) (string, error)
}

type ctxKey int

const userIDKey ctxKey = iota

// RequireAuth 要求 "Authorization: Bearer <token>", 通过后把用户 ID 放进 context
func RequireAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "缺少访问令牌")
				return
			}
			userID, err := a.Authenticate(token)
			if err != nil || userID == "" {
				unauthorized(w, "访问令牌无效或已过期")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID 测试和中间件共用
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID 未认证时返回 ""
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="gitradar"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": "UNAUTHORIZED", "error": msg})
}
