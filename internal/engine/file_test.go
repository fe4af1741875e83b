package engine

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInfo struct {
	name  string
	size  int64
	mod   time.Time
	birth time.Time
	sys   interface{}
}

func (f fakeInfo) Name() string         { return f.name }
func (f fakeInfo) Size() int64          { return f.size }
func (f fakeInfo) Mode() fs.FileMode    { return 0644 }
func (f fakeInfo) ModTime() time.Time   { return f.mod }
func (f fakeInfo) IsDir() bool          { return false }
func (f fakeInfo) Sys() interface{}     { return f.sys }
func (f fakeInfo) BirthTime() time.Time { return f.birth }

func TestFileURL(t *testing.T) {
	t.Run("posix path", func(t *testing.T) {
		assert.Equal(t, "file:///tmp/site/index.html", FileURL("/tmp/site/index.html", PathStylePosix))
	})

	t.Run("percent-encodes special characters", func(t *testing.T) {
		assert.Equal(t, "file:///tmp/my%20site/a%23b.html", FileURL("/tmp/my site/a#b.html", PathStylePosix))
	})

	t.Run("windows separators become slashes", func(t *testing.T) {
		assert.Equal(t, "file:///C:/Users/me/site/index.html", FileURL(`C:\Users\me\site\index.html`, PathStyleWindows))
	})
}

func TestFilePath(t *testing.T) {
	t.Run("round trips posix paths", func(t *testing.T) {
		p, err := FilePath(FileURL("/tmp/my site/a#b.html", PathStylePosix), PathStylePosix)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/my site/a#b.html", p)
	})

	t.Run("round trips windows paths", func(t *testing.T) {
		p, err := FilePath(FileURL(`C:\site\index.html`, PathStyleWindows), PathStyleWindows)
		require.NoError(t, err)
		assert.Equal(t, `C:\site\index.html`, p)
	})

	t.Run("rejects other schemes", func(t *testing.T) {
		_, err := FilePath("https://example.com/x", PathStylePosix)
		assert.Error(t, err)
	})
}

func TestFileBuilder_Build(t *testing.T) {
	builder := FileBuilder{Style: PathStylePosix}
	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	birth := mod.Add(-time.Hour)

	t.Run("maps stat info", func(t *testing.T) {
		info := fakeInfo{name: "c.html", size: 8, mod: mod, birth: birth, sys: map[string]interface{}{
			"inode":   uint64(42),
			"refresh": func() {},
		}}

		file := builder.Build("b/c.html", "/root/b/c.html", info, "")

		assert.Equal(t, "b/c.html", file.Path)
		assert.Equal(t, "file:///root/b/c.html", file.Source)
		assert.Equal(t, mod, file.ModifiedAt)
		assert.Equal(t, birth, file.CreatedAt)
		assert.Equal(t, int64(8), file.Metadata["size"])
		assert.Equal(t, uint64(42), file.Metadata["inode"])
		assert.NotContains(t, file.Metadata, "refresh")
		assert.Empty(t, file.Contents)
		assert.Equal(t, ChangeKind(""), file.Change)
	})

	t.Run("without stat info leaves timestamps unset", func(t *testing.T) {
		file := builder.Build("gone.txt", "/root/gone.txt", nil, ChangeDeleted)

		assert.True(t, file.CreatedAt.IsZero())
		assert.True(t, file.ModifiedAt.IsZero())
		assert.Empty(t, file.Metadata)
		assert.Equal(t, ChangeDeleted, file.Change)
	})

	t.Run("copies exported fields of a real stat result", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "real.txt")
		require.NoError(t, os.WriteFile(path, []byte("hi"), 0644))
		info, err := os.Stat(path)
		require.NoError(t, err)

		file := builder.Build("real.txt", path, info, "")

		assert.Equal(t, "real.txt", file.Metadata["name"])
		assert.Equal(t, int64(2), file.Metadata["size"])
		assert.Equal(t, "real.txt", file.Name())
		assert.Equal(t, ".txt", file.Extension())
	})
}

func TestWithinDepth(t *testing.T) {
	assert.True(t, WithinDepth("a.txt", 0))
	assert.False(t, WithinDepth(filepath.Join("one", "a.txt"), 0))
	assert.True(t, WithinDepth(filepath.Join("one", "a.txt"), 1))
	assert.False(t, WithinDepth(filepath.Join("one", "two", "a.txt"), 1))
	assert.True(t, WithinDepth(filepath.Join("one", "two", "three", "a.txt"), DepthUnbounded))
}

func TestRun_Limit(t *testing.T) {
	assert.Equal(t, 1, Run{}.Limit())
	assert.Equal(t, 8, Run{Concurrency: 8}.Limit())
}
