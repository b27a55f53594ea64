package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	preferences   JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// querier 是 pgxpool.Pool 中用到的那部分, 测试里可以替换
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore 实现了 port.UserStore 接口, 与仓库库是两个独立的数据库
type PgStore struct {
	db   querier
	pool *pgxpool.Pool
}

var _ port.UserStore = (*PgStore)(nil)

// NewPgStore 创建连接池, 验证连通性并建表
func NewPgStore(ctx context.Context, databaseURL string) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接用户库失败", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, common.WrapError(common.ErrCodeDatabase, "用户库 ping 失败", err)
	}

	s := &PgStore{db: pool, pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema 幂等建表
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return common.WrapError(common.ErrCodeDatabase, "创建 users 表失败", err)
	}
	return nil
}

// CreateUser ID 和 CreatedAt 为空时自动填充; 邮箱重复返回 CONFLICT
func (s *PgStore) CreateUser(ctx context.Context, user *domain.UserAccount) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	prefs := user.Preferences
	if len(prefs) == 0 {
		prefs = []byte("{}")
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, email, username, password_hash, preferences, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Username, user.PasswordHash, prefs, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.WrapError(common.ErrCodeConflict, "邮箱已被注册", err)
		}
		return common.WrapError(common.ErrCodeDatabase, "创建用户失败", err)
	}
	user.Preferences = prefs
	return nil
}

// FindByEmail 不存在时返回 NOT_FOUND
func (s *PgStore) FindByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRow(ctx,
		`SELECT id::text, email, username, password_hash, preferences, created_at
		 FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Preferences, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewError(common.ErrCodeNotFound, "用户不存在")
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "查询用户失败", err)
	}
	return &u, nil
}

// ReadPreferences 返回原始 JSON
func (s *PgStore) ReadPreferences(ctx context.Context, userID string) ([]byte, error) {
	var prefs []byte
	err := s.db.QueryRow(ctx, `SELECT preferences FROM users WHERE id = $1`, userID).Scan(&prefs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewError(common.ErrCodeNotFound, fmt.Sprintf("用户 %s 不存在", userID))
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "读取偏好失败", err)
	}
	return prefs, nil
}

// UpdatePreferences 整体覆盖
func (s *PgStore) UpdatePreferences(ctx context.Context, userID string, prefs []byte) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET preferences = $2 WHERE id = $1`, userID, prefs)
	if err != nil {
		return common.WrapError(common.ErrCodeDatabase, "更新偏好失败", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewError(common.ErrCodeNotFound, fmt.Sprintf("用户 %s 不存在", userID))
	}
	return nil
}

// Ping 就绪检查用
func (s *PgStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// Close 关闭连接池
func (s *PgStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
