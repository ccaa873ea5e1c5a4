package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavern/internal/config"
)

func TestGetStorageFailureIsSticky(t *testing.T) {
	// A regular file where the data directory should be makes Open fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	badPath := filepath.Join(blocker, "data.db")

	cliCtx := NewCLIContext(config.Defaults(), "", nil, badPath, false, false)

	db, err := cliCtx.GetStorage()
	require.Error(t, err)
	assert.Nil(t, db)

	db, err = cliCtx.GetStorage()
	require.Error(t, err)
	assert.Nil(t, db)

	assert.NoError(t, cliCtx.Close())
}

func TestGetStorageOpensOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	cliCtx := NewCLIContext(config.Defaults(), "", nil, path, false, false)

	db, err := cliCtx.GetStorage()
	require.NoError(t, err)
	require.NotNil(t, db)

	again, err := cliCtx.GetStorage()
	require.NoError(t, err)
	assert.Same(t, db, again)

	assert.NoError(t, cliCtx.Close())
}
