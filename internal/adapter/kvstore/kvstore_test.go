package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the behavior every backend must share.
func exerciseStore(t *testing.T, s port.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "scoring.calibration", `{"impact":{"size":0.4}}`))
	v, ok, err := s.Get(ctx, "scoring.calibration")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"impact":{"size":0.4}}`, v)

	require.NoError(t, s.Set(ctx, "scoring.calibration", "v2"))
	v, _, err = s.Get(ctx, "scoring.calibration")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Set(ctx, "empty", ""))
	v, ok, err = s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok, "empty values are still present")
	assert.Empty(t, v)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	s := NewFileStore(path)
	exerciseStore(t, s)

	// A fresh store over the same file sees the persisted values.
	v, ok, err := NewFileStore(path).Get(context.Background(), "scoring.calibration")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"sequence instead of map", "- not\n- a map\n"},
		{"unterminated flow mapping", "{{not yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "prefs.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			s := NewFileStore(path)

			_, _, err := s.Get(ctx, "k")
			assert.ErrorIs(t, err, errCorruptStore)

			// The next write replaces the unreadable document.
			require.NoError(t, s.Set(ctx, "scoring.calibration", `{"risk":{"usage":0.5}}`))
			v, ok, err := s.Get(ctx, "scoring.calibration")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"risk":{"usage":0.5}}`, v)
		})
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	v, ok, err := reopened.Get(ctx, "scoring.calibration")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendFile, Path: filepath.Join(t.TempDir(), "p.yaml")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, Options{Backend: BackendFile})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: BackendRedis})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)
}
