package filter

import (
	"errors"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/fsource/internal/engine"
)

var site = []string{
	"www/index.html",
	"www/about.html",
	"www/robots.txt",
	"www/favicon.ico",
	"www/products/product1.html",
	"www/products/product1/img/front.png",
	"www/products/product1/img/back.png",
	"www/products/product2.html",
	"www/products/product2/img/front.png",
	"www/products/product2/img/back.png",
	"www/products/product3.html",
	"www/products/product3/img/front.png",
	"www/products/product3/img/back.png",
	"www/img/logo.png",
	"www/img/logos/social/facebook.png",
	"www/img/logos/social/twitter.png",
}

func matching(t *testing.T, c Criteria, paths []string) []string {
	t.Helper()
	pred, err := Compile(c, engine.PathStylePosix)
	require.NoError(t, err)

	var out []string
	for _, p := range paths {
		ok, err := pred(&engine.File{Path: p})
		require.NoError(t, err)
		if ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func TestCompile(t *testing.T) {
	t.Run("none matches everything", func(t *testing.T) {
		assert.Len(t, matching(t, None(), site), len(site))
	})

	t.Run("bool", func(t *testing.T) {
		assert.Len(t, matching(t, Bool(true), site), len(site))
		assert.Empty(t, matching(t, Bool(false), site))
	})

	t.Run("single glob", func(t *testing.T) {
		got := matching(t, Glob("**/*.html"), site)
		assert.Equal(t, []string{
			"www/about.html",
			"www/index.html",
			"www/products/product1.html",
			"www/products/product2.html",
			"www/products/product3.html",
		}, got)
	})

	t.Run("glob list with exclusion", func(t *testing.T) {
		got := matching(t, Glob("*/*.{txt,ico}", "*/*/*.html", "**/*.png", "!*/*/*/*/*back*"), site)
		want := []string{
			"www/robots.txt",
			"www/favicon.ico",
			"www/products/product1.html",
			"www/products/product1/img/front.png",
			"www/products/product2.html",
			"www/products/product2/img/front.png",
			"www/products/product3.html",
			"www/products/product3/img/front.png",
			"www/img/logo.png",
			"www/img/logos/social/facebook.png",
			"www/img/logos/social/twitter.png",
		}
		sort.Strings(want)
		assert.Equal(t, want, got)
	})

	t.Run("only exclusions", func(t *testing.T) {
		got := matching(t, Glob("!**/*.png"), site)
		assert.Len(t, got, 7)
	})

	t.Run("regexp", func(t *testing.T) {
		assert.Empty(t, matching(t, Regexp(regexp.MustCompile(`\.md$`)), site))
		assert.Len(t, matching(t, Regexp(regexp.MustCompile(`^www/img/`)), site), 3)
	})

	t.Run("func", func(t *testing.T) {
		got := matching(t, Match(func(f *engine.File) (bool, error) {
			return strings.Contains(f.Name(), "a") || strings.Contains(f.Name(), "e"), nil
		}), site)
		assert.Len(t, got, 8)
	})

	t.Run("func errors propagate", func(t *testing.T) {
		boom := errors.New("boom")
		pred, err := Compile(Match(func(*engine.File) (bool, error) { return false, boom }), engine.PathStylePosix)
		require.NoError(t, err)

		_, err = pred(&engine.File{Path: "a.txt"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("func panics become errors", func(t *testing.T) {
		pred, err := Compile(Match(func(*engine.File) (bool, error) { panic("bad filter") }), engine.PathStylePosix)
		require.NoError(t, err)

		ok, err := pred(&engine.File{Path: "a.txt"})
		assert.False(t, ok)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad filter")
	})

	t.Run("windows paths match with forward slashes", func(t *testing.T) {
		pred, err := Compile(Glob("b/*.html"), engine.PathStyleWindows)
		require.NoError(t, err)

		ok, err := pred(&engine.File{Path: `b\c.html`})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("invalid criteria", func(t *testing.T) {
		var verr *engine.ValidationError

		_, err := Compile(Glob("[a-"), engine.PathStylePosix)
		assert.True(t, errors.As(err, &verr))

		_, err = Compile(Glob(), engine.PathStylePosix)
		assert.True(t, errors.As(err, &verr))

		_, err = Compile(Regexp(nil), engine.PathStylePosix)
		assert.True(t, errors.As(err, &verr))

		_, err = Compile(Match(nil), engine.PathStylePosix)
		assert.True(t, errors.As(err, &verr))
	})
}

func TestCriteria_SingleGlob(t *testing.T) {
	g, ok := Glob("**/*.md").SingleGlob()
	assert.True(t, ok)
	assert.Equal(t, "**/*.md", g)

	_, ok = Glob("*.md", "*.txt").SingleGlob()
	assert.False(t, ok)

	_, ok = Glob("!*.md").SingleGlob()
	assert.False(t, ok)

	_, ok = Regexp(regexp.MustCompile(`x`)).SingleGlob()
	assert.False(t, ok)

	assert.True(t, None().IsNone())
	assert.Equal(t, KindFunc, Match(func(*engine.File) (bool, error) { return true, nil }).Kind())
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		path string
		dir  string
		glob string
		ok   bool
	}{
		{"plain path", "docs/readme.md", "docs/readme.md", "", false},
		{"recursive glob", "docs/**/*.md", "docs", "**/*.md", true},
		{"glob only", "*.txt", ".", "*.txt", true},
		{"absolute", "/srv/www/*.html", "/srv/www", "*.html", true},
		{"absolute root", "/*.html", "/", "*.html", true},
		{"braces", "src/{a,b}/x.go", "src", "{a,b}/x.go", true},
		{"extglob", "src/@(a|b)/x.go", "src", "@(a|b)/x.go", true},
		{"negation", "src/!vendor", "src", "!vendor", true},
		{"escaped", `src/a\*b/x`, `src/a\*b/x`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, glob, ok := Split(tt.path, engine.PathStylePosix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.dir, dir)
			assert.Equal(t, tt.glob, glob)
		})
	}

	t.Run("windows separators", func(t *testing.T) {
		dir, glob, ok := Split(`C:\site\**\*.md`, engine.PathStyleWindows)
		require.True(t, ok)
		assert.Equal(t, `C:\site`, dir)
		assert.Equal(t, "**/*.md", glob)
	})

	t.Run("host style round trip", func(t *testing.T) {
		dir, _, ok := Split(filepath.Join("a", "b", "*.txt"), engine.HostPathStyle())
		require.True(t, ok)
		assert.Equal(t, filepath.Join("a", "b"), dir)
	})
}
