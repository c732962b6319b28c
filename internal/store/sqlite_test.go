package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestSession(t *testing.T, s *SQLiteStore) string {
	t.Helper()
	session, err := s.CreateSession()
	require.NoError(t, err)
	return session.ID
}

func TestSQLiteStore_Sessions(t *testing.T) {
	s := newTestStore(t)

	session, err := s.CreateSession()
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	got, err := s.GetSession(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)

	missing, err := s.GetSession("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteStore_KeyValue(t *testing.T) {
	s := newTestStore(t)
	id := newTestSession(t, s)

	_, ok, err := s.GetValue(id, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetValue(id, "k", "one"))
	require.NoError(t, s.SetValue(id, "k", "two"))

	v, ok, err := s.GetValue(id, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)

	require.NoError(t, s.DeleteValue(id, "k"))
	_, ok, err = s.GetValue(id, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ValuesAreSessionScoped(t *testing.T) {
	s := newTestStore(t)
	a := newTestSession(t, s)
	b := newTestSession(t, s)

	require.NoError(t, s.SetValue(a, "k", "from-a"))

	_, ok, err := s.GetValue(b, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ClearSession(t *testing.T) {
	s := newTestStore(t)
	id := newTestSession(t, s)
	require.NoError(t, s.SetValue(id, "a", "1"))
	require.NoError(t, s.SetValue(id, "b", "2"))

	require.NoError(t, s.ClearSession(id))

	for _, key := range []string{"a", "b"} {
		_, ok, err := s.GetValue(id, key)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	session, err := s.GetSession(id)
	require.NoError(t, err)
	assert.NotNil(t, session, "clearing keeps the session itself")
}
