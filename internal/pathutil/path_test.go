package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"leading slash", "/etc/nginx", "etc/nginx"},
		{"trailing slash", "etc/nginx/", "etc/nginx"},
		{"empty string", "", "."},
		{"root slash", "/", "."},
		{"dot", ".", "."},
		{"nested with trailing", "foo/bar/baz/", "foo/bar/baz"},
		{"only slashes", "///", "."},
		{"internal double slashes", "etc//nginx", "etc/nginx"},
		{"mixed slashes everywhere", "//etc//nginx//", "etc/nginx"},
		// Dot and dotdot segments survive for Valid to reject.
		{"dotdot in middle", "a/../b", "a/../b"},
		{"dotdot at start", "../etc", "../etc"},
		{"dot in middle", "a/./b", "a/./b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestValid(t *testing.T) {
	valid := []string{"a", "a/b.txt", "/abs/path", "dir/", "a//b"}
	for _, p := range valid {
		assert.True(t, Valid(p), p)
	}

	invalid := []string{"", ".", "/", "..", "../x", "a/../../x", "a/./b", "a/.."}
	for _, p := range invalid {
		assert.False(t, Valid(p), p)
	}
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("a/b.txt", "a/b.txt"))
	assert.True(t, Match("dir/", "dir"))
	assert.True(t, Match("/a//b", "a/b"))
	assert.False(t, Match("a/b", "a/c"))
	assert.False(t, Match("a", "A"))
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "a/b.txt", EntryName("a/b.txt", false))
	assert.Equal(t, "a/", EntryName("a", true))
	assert.Equal(t, "a/", EntryName("a/", true))
	assert.Equal(t, "x/y", EntryName("/x//y", false))
}
