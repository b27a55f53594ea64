package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow 按顺序把 values 写入 Scan 的目标
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("scan: column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			*p = r.values[i].([]byte)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return errors.New("scan: unsupported destination")
		}
	}
	return nil
}

type fakeQuerier struct {
	execSQL  []string
	execArgs [][]any
	execTag  pgconn.CommandTag
	execErr  error
	row      fakeRow
	rowSQL   string
	rowArgs  []any
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execSQL = append(q.execSQL, sql)
	q.execArgs = append(q.execArgs, args)
	return q.execTag, q.execErr
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.rowSQL = sql
	q.rowArgs = args
	return q.row
}

func TestPgStore_CreateUser(t *testing.T) {
	tests := []struct {
		name         string
		execErr      error
		expectedCode string
	}{
		{name: "创建成功", execErr: nil},
		{name: "邮箱重复", execErr: &pgconn.PgError{Code: "23505", Message: "duplicate key"}, expectedCode: common.ErrCodeConflict},
		{name: "其他数据库错误", execErr: errors.New("connection refused"), expectedCode: common.ErrCodeDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{execTag: pgconn.NewCommandTag("INSERT 0 1"), execErr: tt.execErr}
			store := &PgStore{db: q}
			user := &domain.UserAccount{Email: "dev@example.com", Username: "dev", PasswordHash: "hash"}

			err := store.CreateUser(context.Background(), user)

			if tt.expectedCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectedCode, common.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, user.ID, 36)
			assert.False(t, user.CreatedAt.IsZero())
			assert.Equal(t, []byte("{}"), user.Preferences)
			require.Len(t, q.execArgs, 1)
			assert.Equal(t, "dev@example.com", q.execArgs[0][1])
		})
	}
}

func TestPgStore_FindByEmail(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("找到用户", func(t *testing.T) {
		q := &fakeQuerier{row: fakeRow{values: []any{"u-1", "dev@example.com", "dev", "hash", []byte(`{"languages":["Go"]}`), created}}}
		store := &PgStore{db: q}

		u, err := store.FindByEmail(context.Background(), "  Dev@Example.com ")

		require.NoError(t, err)
		assert.Equal(t, "u-1", u.ID)
		assert.Equal(t, created, u.CreatedAt)
		assert.Equal(t, []any{"dev@example.com"}, q.rowArgs)
	})

	t.Run("用户不存在", func(t *testing.T) {
		store := &PgStore{db: &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}}

		u, err := store.FindByEmail(context.Background(), "nobody@example.com")

		assert.Nil(t, u)
		assert.Equal(t, common.ErrCodeNotFound, common.CodeOf(err))
	})
}

func TestPgStore_Preferences(t *testing.T) {
	t.Run("读取偏好", func(t *testing.T) {
		store := &PgStore{db: &fakeQuerier{row: fakeRow{values: []any{[]byte(`{"min_stars":10}`)}}}}

		prefs, err := store.ReadPreferences(context.Background(), "u-1")

		require.NoError(t, err)
		assert.JSONEq(t, `{"min_stars":10}`, string(prefs))
	})

	t.Run("读取不存在的用户", func(t *testing.T) {
		store := &PgStore{db: &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}}

		_, err := store.ReadPreferences(context.Background(), "missing")

		assert.Equal(t, common.ErrCodeNotFound, common.CodeOf(err))
	})

	t.Run("更新偏好", func(t *testing.T) {
		q := &fakeQuerier{execTag: pgconn.NewCommandTag("UPDATE 1")}
		store := &PgStore{db: q}

		err := store.UpdatePreferences(context.Background(), "u-1", []byte(`{"languages":["Rust"]}`))

		require.NoError(t, err)
		assert.Equal(t, "u-1", q.execArgs[0][0])
	})

	t.Run("更新不存在的用户", func(t *testing.T) {
		store := &PgStore{db: &fakeQuerier{execTag: pgconn.NewCommandTag("UPDATE 0")}}

		err := store.UpdatePreferences(context.Background(), "missing", []byte(`{}`))

		assert.Equal(t, common.ErrCodeNotFound, common.CodeOf(err))
	})
}

func TestPgStore_EnsureSchema(t *testing.T) {
	q := &fakeQuerier{}
	store := &PgStore{db: q}

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.Len(t, q.execSQL, 1)
	assert.Contains(t, q.execSQL[0], "CREATE TABLE IF NOT EXISTS users")

	q.execErr = errors.New("permission denied")
	assert.Equal(t, common.ErrCodeDatabase, common.CodeOf(store.EnsureSchema(context.Background())))
}
