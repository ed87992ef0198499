package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTags(t *testing.T) {
	p := &Post{}
	p.SetTags([]string{" go ", "", "web", "  "})
	assert.Equal(t, "go,web", p.Tags)
	assert.Equal(t, []string{"go", "web"}, p.TagList())

	assert.Equal(t, []string{}, SplitTags(""))
	assert.Equal(t, []string{"a", "b"}, SplitTags("a, ,b,"))
}

func TestValidVisibility(t *testing.T) {
	assert.True(t, ValidVisibility(VisibilityPublic))
	assert.True(t, ValidVisibility(VisibilityMember))
	assert.False(t, ValidVisibility("secret"))
	assert.False(t, ValidVisibility(""))
}
