package remedy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/example/krishak/internal/diagnosis"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 36, c.Len())

	r, ok := c.Lookup("Tomato___Late_blight")
	require.True(t, ok)
	assert.Equal(t, "Critical Infection", r.Status)
	assert.Equal(t, "Spray Metalaxyl + Mancozeb immediately.", r.Cure)

	r, ok = c.Lookup("Corn_(maize)___Cercospora_leaf_spot Gray_leaf_spot")
	require.True(t, ok)
	assert.Equal(t, "Infected", r.Status)

	_, ok = c.Lookup("Zzz___Unknown_Disease")
	assert.False(t, ok)

	labels := c.Labels()
	assert.Len(t, labels, 36)
	assert.Equal(t, "Apple___Apple_scab", labels[0])
}

func TestDefaultCatalogHealthyEntriesAreMarked(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	for _, label := range c.Labels() {
		r, _ := c.Lookup(label)
		if strings.HasSuffix(label, "___healthy") {
			assert.Equal(t, "Healthy", r.Status, label)
		}
	}
}

func TestCatalogDrivesEngine(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	labels := diagnosis.LabelList{"Tomato___Late_blight", "Tomato___healthy", "Potato___Early_blight"}
	res, err := diagnosis.Classify([]float64{0.75, 0.10, 0.05}, labels, c)
	require.NoError(t, err)
	require.True(t, res.IsAccepted())
	assert.Equal(t, "Critical Infection", res.Accepted.Status)
}

func TestLoadFileOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `"Rice___Blast":
  status: "Infected"
  cure: "Spray Tricyclazole."
  precaution: "Avoid excess nitrogen."
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	r, ok := c.Lookup("Rice___Blast")
	require.True(t, ok)
	assert.Equal(t, "Spray Tricyclazole.", r.Cure)

	_, ok = c.Lookup("Tomato___Late_blight")
	assert.False(t, ok)
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("  ")
	require.NoError(t, err)
	assert.Equal(t, 36, c.Len())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(""))
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = Parse([]byte("- not\n- a map\n"))
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNilCatalogMisses(t *testing.T) {
	var c *Catalog
	_, ok := c.Lookup("Tomato___healthy")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
