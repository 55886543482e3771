package gemini_test

import (
	"testing"

	"github.com/fwojciec/docindex/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmbedConfig(t *testing.T) {
	t.Parallel()

	config := gemini.BuildEmbedConfig(gemini.TaskRetrievalQuery, 768)

	assert.Equal(t, gemini.TaskRetrievalQuery, config.TaskType)
	require.NotNil(t, config.OutputDimensionality)
	assert.Equal(t, int32(768), *config.OutputDimensionality)
}

func TestBuildContents(t *testing.T) {
	t.Parallel()

	contents := gemini.BuildContents([]string{"first", "second"})

	require.Len(t, contents, 2)
	require.Len(t, contents[1].Parts, 1)
	assert.Equal(t, "second", contents[1].Parts[0].Text)
	assert.Equal(t, "user", contents[1].Role)
}

func TestEmbedder_Model(t *testing.T) {
	t.Parallel()

	e := gemini.NewEmbedder(nil, "", 768)

	assert.Equal(t, "gemini-embedding-001/768", e.Model())
	assert.Equal(t, 768, e.Dimensions())
	assert.Equal(t, e.Model(), e.ForQueries().Model())
}
