package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternGlob(t *testing.T) {
	tests := []struct {
		pattern string
		id      Identifier
		want    bool
	}{
		{"/a.md", "/a.md", true},
		{"/a.md", "/b.md", false},
		{"/*.md", "/a.md", true},
		{"/*.md", "/blog/a.md", false},
		{"/**/*.md", "/a.md", true},
		{"/**/*.md", "/blog/2024/a.md", true},
		{"/blog/**", "/blog/2024/a.md", true},
		{"/blog/**", "/blogs/a.md", false},
		{"/?.md", "/a.md", true},
		{"/?.md", "/ab.md", false},
		{"/*.{md,html}", "/a.html", true},
		{"/*.{md,html}", "/a.txt", false},
		{"/a,b.md", "/a,b.md", true},
		{`/\*.md`, "/*.md", true},
		{`/\*.md`, "/a.md", false},
		{"/a+b.md", "/a+b.md", true},
		{"/a+b.md", "/aab.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+string(tt.id), func(t *testing.T) {
			p, err := CompilePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.id))
		})
	}
}

func TestPatternRegexp(t *testing.T) {
	p := MustCompilePattern(`regexp:\.(png|jpg)$`)

	assert.True(t, p.Match("/img/logo.png"))
	assert.False(t, p.Match("/img/logo.svg"))
	assert.Equal(t, `regexp:\.(png|jpg)$`, p.String())
}

func TestPatternErrors(t *testing.T) {
	for _, bad := range []string{"/{a,b", "/a}", `/a\`, "regexp:("} {
		_, err := CompilePattern(bad)
		assert.Error(t, err, "pattern %q", bad)
	}
	assert.Panics(t, func() { MustCompilePattern("/{") })
}

func TestZeroPatternMatchesNothing(t *testing.T) {
	var p Pattern
	assert.False(t, p.Match("/a.md"))
}
