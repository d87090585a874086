package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/airlockhq/identity/internal/identity/store"
	"github.com/airlockhq/identity/internal/identity/store/drivers/sqlite"
	"github.com/airlockhq/identity/pkg/jwtx"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestCodec(t *testing.T) *jwtx.Codec {
	t.Helper()

	codec, err := jwtx.NewCodec([]byte(testSecret), "airlock-identity")
	require.NoError(t, err)
	return codec
}
