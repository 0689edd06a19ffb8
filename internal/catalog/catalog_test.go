package catalog

import (
	"testing"

	"github.com/mmcdole/scenedl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	scenes := c.List()

	require.Len(t, scenes, 4)
	assert.Equal(t, "cbox", scenes[0].Name)
	assert.Equal(t, "rt5", scenes[3].Name)
}

func TestNew_Validation(t *testing.T) {
	cases := map[string]struct {
		scenes []domain.Scene
		errIs  error
	}{
		"duplicate name": {
			scenes: []domain.Scene{{Name: "a", URL: "http://x/a.zip"}, {Name: "a", URL: "http://x/b.zip"}},
			errIs:  domain.ErrDuplicateScene,
		},
		"empty name": {
			scenes: []domain.Scene{{Name: " ", URL: "http://x/a.zip"}},
		},
		"empty url": {
			scenes: []domain.Scene{{Name: "a"}},
		},
	}

	for n, c := range cases {
		t.Run(n, func(t *testing.T) {
			_, err := New(c.scenes)
			require.Error(t, err)
			if c.errIs != nil {
				assert.ErrorIs(t, err, c.errIs)
			}
		})
	}
}

func TestList_IsCopy(t *testing.T) {
	c := Default()
	scenes := c.List()
	scenes[0].Name = "mutated"

	assert.Equal(t, "cbox", c.List()[0].Name)
}

func TestDefault_Independent(t *testing.T) {
	scenes := Default().List()
	scenes[2] = domain.Scene{Name: "mutated", URL: "http://x/m.zip"}

	again := Default()
	assert.Equal(t, "rt4", again.List()[2].Name)
	_, err := again.Find("mutated")
	assert.ErrorIs(t, err, domain.ErrSceneNotFound)
}

func TestAt(t *testing.T) {
	c := Default()

	s, err := c.At(2)
	require.NoError(t, err)
	assert.Equal(t, "cbox_gloss", s.Name)

	for _, n := range []int{0, -1, 5} {
		_, err := c.At(n)
		assert.ErrorIs(t, err, domain.ErrInvalidSelection)
	}
}

func TestFind(t *testing.T) {
	c := Default()

	cases := map[string]struct {
		query    string
		expected string
		errIs    error
	}{
		"exact":        {query: "rt4", expected: "rt4"},
		"case folding": {query: "CBOX", expected: "cbox"},
		"fuzzy unique": {query: "gloss", expected: "cbox_gloss"},
		"ambiguous":    {query: "rt", errIs: domain.ErrAmbiguousScene},
		"no match":     {query: "sponza", errIs: domain.ErrSceneNotFound},
		"empty":        {query: "  ", errIs: domain.ErrSceneNotFound},
	}

	for n, tc := range cases {
		t.Run(n, func(t *testing.T) {
			s, err := c.Find(tc.query)
			if tc.errIs != nil {
				assert.ErrorIs(t, err, tc.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, s.Name)
		})
	}
}
