package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*UserStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db), mock
}

func TestCreateUser(t *testing.T) {
	s, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (email, name, hashed_password)")).
		WithArgs("lead@example.com", "Lead", []byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "is_active", "created_at", "updated_at"}).
			AddRow(int64(7), "lead@example.com", "Lead", true, now, now))

	user, err := s.CreateUser(context.Background(), "lead@example.com", "Lead", []byte("hash"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.True(t, user.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := s.CreateUser(context.Background(), "lead@example.com", "", []byte("hash"))
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT id, email, name, hashed_password").
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetUserByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetActiveUserByID(t *testing.T) {
	s, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND is_active")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "is_active", "created_at", "updated_at"}).
			AddRow(int64(3), "a@example.com", "A", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND is_active")).
		WithArgs(int64(4)).
		WillReturnError(sql.ErrNoRows)

	user, err := s.GetActiveUserByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Ref().Email)

	_, err = s.GetActiveUserByID(context.Background(), 4)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserRefsByIDs(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name FROM users WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).
			AddRow(int64(1), "one@example.com", "One").
			AddRow(int64(3), "three@example.com", ""))

	refs, err := s.GetUserRefsByIDs(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, "One", refs[1].Name)
	_, ok := refs[2]
	assert.False(t, ok)

	empty, err := s.GetUserRefsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}
