package scriptenv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadToleratesMissingFile(t *testing.T) {
	require.NoError(t, Load(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadKeepsExistingVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MT_SCRIPTENV_A=from-file\nMT_SCRIPTENV_B=from-file\n"), 0o600))

	t.Setenv("MT_SCRIPTENV_A", "from-env")
	t.Setenv("MT_SCRIPTENV_B", "")
	require.NoError(t, os.Unsetenv("MT_SCRIPTENV_B"))

	require.NoError(t, Load(path))
	assert.Equal(t, "from-env", os.Getenv("MT_SCRIPTENV_A"))
	assert.Equal(t, "from-file", os.Getenv("MT_SCRIPTENV_B"))
}

func TestRequireReportsFirstMissing(t *testing.T) {
	t.Setenv(DashScopeAPIKey, " key ")
	t.Setenv(DashVectorAPIKey, "")

	_, err := Require(DashScopeAPIKey, DashVectorAPIKey)
	require.EqualError(t, err, DashVectorAPIKey+" is not set")

	values, err := Require(DashScopeAPIKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"key"}, values)
}

func TestDuration(t *testing.T) {
	t.Setenv(StaleAfter, "")
	value, err := Duration(StaleAfter, DefaultStaleAfter)
	require.NoError(t, err)
	assert.Equal(t, DefaultStaleAfter, value)

	t.Setenv(StaleAfter, "90m")
	value, err = Duration(StaleAfter, DefaultStaleAfter)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, value)

	t.Setenv(StaleAfter, "-1h")
	_, err = Duration(StaleAfter, DefaultStaleAfter)
	require.Error(t, err)

	t.Setenv(StaleAfter, "soon")
	_, err = Duration(StaleAfter, DefaultStaleAfter)
	require.Error(t, err)
}

func TestIndexerRequiresKeys(t *testing.T) {
	t.Setenv(DashScopeAPIKey, "")
	_, err := Indexer(Logger())
	require.EqualError(t, err, DashScopeAPIKey+" is not set")
}
