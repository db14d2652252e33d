package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam-rag/internal/models"
)

func TestGenerateOptionsFlat(t *testing.T) {
	req, err := generateOptions{labels: []string{"唐宋 - 赤壁賦"}, simple: 2, hard: 1}.request()
	require.NoError(t, err)
	assert.Equal(t, models.ModeFlat, req.Requirement.Mode)
	assert.Equal(t, 3, req.Requirement.Total())
}

func TestGenerateOptionsGrid(t *testing.T) {
	req, err := generateOptions{
		labels: []string{"唐宋 - 師說"},
		simple: 5,
		cells:  []string{"題組:困難:1", " 單題 : 簡單 : 3 "},
	}.request()
	require.NoError(t, err)
	assert.Equal(t, models.ModeGrid, req.Requirement.Mode)
	assert.Equal(t, []models.GridCount{
		{Type: models.TypeGroup, Difficulty: models.DifficultyHard, Count: 1},
		{Type: models.TypeSingle, Difficulty: models.DifficultySimple, Count: 3},
	}, req.Requirement.Grid)
}

func TestGenerateOptionsInvalid(t *testing.T) {
	for _, opts := range []generateOptions{
		{simple: 1},
		{labels: []string{"唐宋 - 師說"}},
		{labels: []string{"唐宋 - 師說"}, cells: []string{"題組:困難"}},
		{labels: []string{"唐宋 - 師說"}, cells: []string{"題組:困難:x"}},
	} {
		_, err := opts.request()
		assert.ErrorIs(t, err, models.ErrInvalidRequest)
	}
}
