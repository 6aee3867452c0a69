package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/hirepanel/db"
	"github.com/teranos/hirepanel/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "storage.db"), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyToken, "abc"))
	require.NoError(t, s.Set(ctx, KeyToken, "def"))

	v, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "def", v)

	require.NoError(t, s.Remove(ctx, KeyToken))
	require.NoError(t, s.Remove(ctx, KeyToken))
	_, err = s.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Keys(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Set(ctx, KeyUser, `{"role":"staff"}`))
	require.NoError(t, s.Set(ctx, KeySidebarCollapsed, "true"))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{KeySidebarCollapsed, KeyUser}, keys)
}

func TestStore_SharedAcrossHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.db")

	a, err := Open(path, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(path, nil)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Set(ctx, KeyToken, "from-a"))
	v, err := b.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "from-a", v)
	assert.Equal(t, path, a.Path())
}

func TestStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	s := New(conn, nil)

	mock.ExpectQuery("SELECT value FROM local_storage").
		WithArgs(KeyUser).
		WillReturnError(errors.New("disk I/O error"))
	_, err = s.Get(ctx, KeyUser)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "failed to read")

	mock.ExpectExec("INSERT INTO local_storage").
		WillReturnError(errors.New("database is locked"))
	err = s.Set(ctx, KeyToken, "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write")

	mock.ExpectExec("DELETE FROM local_storage").
		WithArgs(KeyToken).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Remove(ctx, KeyToken))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UseAfterClose(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), KeyToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrDatabaseClosed))
}
