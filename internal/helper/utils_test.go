package helper

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	id, err := GenerateUUID()
	require.NoError(t, err)

	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestFolders(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	ok, err := PathExists(dir)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, CreateFolder(dir))
	ok, err = PathExists(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, RemoveFolder(dir))
	require.NoError(t, RemoveFolder(dir))
	ok, _ = PathExists(dir)
	assert.False(t, ok)
}

func TestPrettyJSON(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", PrettyJSON(map[string]int{"a": 1}))
	assert.Empty(t, PrettyJSON(make(chan int)))
}
