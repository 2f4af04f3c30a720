package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAbsolute(t *testing.T) {
	tests := []struct {
		name   string
		target string
		base   string
		want   string
	}{
		{"dot keeps base", ".", "/a/b", "/a/b"},
		{"dot at root", ".", "/", "/"},
		{"dotdot clamps at root", "..", "/", "/"},
		{"dotdot pops", "..", "/a/b", "/a"},
		{"relative child", "c", "/a/b", "/a/b/c"},
		{"absolute overrides base", "/x", "/a/b", "/x"},
		{"repeated separators", "//x///y/", "/", "/x/y"},
		{"mixed segments", "./c/../d/./e", "/a", "/a/d/e"},
		{"escape attempt", "../../../../etc", "/a", "/etc"},
		{"empty target", "", "/a/b", "/a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAbsolute(tt.target, tt.base))
		})
	}
}

func TestDirBaseJoin(t *testing.T) {
	assert.Equal(t, "/", Dir("/"))
	assert.Equal(t, "/", Dir("/a"))
	assert.Equal(t, "/a/b", Dir("/a/b/c"))

	assert.Equal(t, "/", Base("/"))
	assert.Equal(t, "c", Base("/a/b/c"))

	assert.Equal(t, "/a", Join("/", "a"))
	assert.Equal(t, "/a/b", Join("/a", "b"))
}

func TestIsWithin(t *testing.T) {
	assert.True(t, IsWithin("/a/b", "/a"))
	assert.True(t, IsWithin("/a", "/a"))
	assert.True(t, IsWithin("/anything", "/"))
	assert.False(t, IsWithin("/ab", "/a"))
	assert.False(t, IsWithin("/a", "/a/b"))
}

func TestIsDotSegment(t *testing.T) {
	assert.True(t, IsDotSegment("."))
	assert.True(t, IsDotSegment(".."))
	assert.True(t, IsDotSegment("a/.."))
	assert.True(t, IsDotSegment("a/./"))
	assert.False(t, IsDotSegment(".hidden"))
	assert.False(t, IsDotSegment("/"))
	assert.False(t, IsDotSegment("a/b"))
}
