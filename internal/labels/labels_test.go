package labels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/krishak/internal/diagnosis"
)

func TestLoadTrimsAndSkipsBlankLines(t *testing.T) {
	in := "Apple___Apple_scab  \r\nApple___Black_rot\n\n  \nCorn_(maize)___Cercospora_leaf_spot Gray_leaf_spot\t\n"
	got, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, diagnosis.LabelList{
		"Apple___Apple_scab",
		"Apple___Black_rot",
		"Corn_(maize)___Cercospora_leaf_spot Gray_leaf_spot",
	}, got)
}

func TestLoadKeepsLeadingWhitespace(t *testing.T) {
	got, err := Load(strings.NewReader("  Tomato___healthy\nPotato___healthy"))
	require.NoError(t, err)
	assert.Equal(t, "  Tomato___healthy", got[0])
	assert.Equal(t, "Potato___healthy", got[1])
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(strings.NewReader("\n \n"))
	assert.ErrorIs(t, err, ErrEmptyDictionary)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("Tomato___healthy\nTomato___Late_blight\n"), 0o644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
