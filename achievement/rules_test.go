package achievement_test

import (
	"testing"

	"github.com/lac-hong-legacy/ecotale_api/achievement"
	"github.com/lac-hong-legacy/ecotale_api/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryMasterMatchesCatalog(t *testing.T) {
	catalog, err := content.Load()
	require.NoError(t, err)

	def, ok := achievement.Lookup("story_master")
	require.True(t, ok)
	assert.Equal(t, achievement.StoriesCompleted, def.Type)
	assert.Equal(t, catalog.Len(), def.Threshold, "story_master must require every embedded story")
}
