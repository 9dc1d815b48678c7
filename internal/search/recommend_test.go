package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/codeseek/internal/errors"
)

func TestCategoriesMatch(t *testing.T) {
	t.Parallel()
	categories := Categories{
		"4K":         "4k_video",
		"VR":         "vr_video",
		"Chinese":    "chinese_sub",
		"Uncensored": "uncensored",
	}

	tests := []struct {
		name           string
		arg            string
		wantName       string
		wantCollection string
		wantOK         bool
	}{
		{"exact", "VR", "VR", "vr_video", true},
		{"case insensitive", "vr", "VR", "vr_video", true},
		{"substring", "cens", "Uncensored", "uncensored", true},
		{"first sorted wins", "c", "Chinese", "chinese_sub", true},
		{"no match", "anime", "", "", false},
		{"empty", "  ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, collection, ok := categories.Match(tt.arg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantCollection, collection)
		})
	}
}

func TestCategoriesNamesSorted(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"4K", "VR", "b"}, Categories{"b": "", "VR": "", "4K": ""}.Names())
}

func TestRecommend(t *testing.T) {
	t.Parallel()
	s := New(newFixture())
	categories := Categories{"Uncensored": "uncensored", "VR": "vr_video"}

	rec, err := s.Recommend(t.Context(), categories, "uncen", 2)
	require.NoError(t, err)
	assert.Equal(t, "Uncensored", rec.Category)
	assert.Equal(t, "uncensored", rec.Collection)
	require.Len(t, rec.Hits, 2)
	for _, hit := range rec.Hits {
		assert.Equal(t, "uncensored", hit.Collection)
	}
}

func TestRecommendUnknownCategory(t *testing.T) {
	t.Parallel()
	s := New(newFixture())

	_, err := s.Recommend(t.Context(), Categories{"VR": "vr_video"}, "anime", 5)
	require.ErrorIs(t, err, ErrUnknownCategory)
	assert.True(t, errors.IsNotFound(err))
}

func TestRecommendSampleFailure(t *testing.T) {
	t.Parallel()
	store := newFixture()
	store.failing = map[string]bool{"vr_video": true}
	s := New(store)

	_, err := s.Recommend(t.Context(), Categories{"VR": "vr_video"}, "vr", 5)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}
