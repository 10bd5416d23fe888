package pathgen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialDistinctPaths(t *testing.T) {
	g := &Generator{
		Layout:      Sequential,
		FilesPerDir: 2,
		DirsPerDir:  2,
		TopDirs:     []string{"/top"},
		Prefix:      "p",
		Suffix:      "s",
		HostID:      "h1",
		WorkerID:    "00",
	}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p := g.FilePath("file_srcdir", i)
		require.False(t, seen[p], "duplicate path for file_num=%d: %s", i, p)
		seen[p] = true
	}
}

func TestSequentialSmokeLayout(t *testing.T) {
	g := &Generator{
		Layout:      Sequential,
		FilesPerDir: 2,
		DirsPerDir:  2,
		TopDirs:     []string{"/top"},
		Prefix:      "p",
		Suffix:      "s",
		HostID:      "h1",
		WorkerID:    "00",
	}
	assert.Equal(t, "d_000", g.DirPath(0))
	assert.Equal(t, "d_000", g.DirPath(1))
	assert.Equal(t, "d_001", g.DirPath(2))
	assert.Equal(t, "d_001", g.DirPath(3))
	assert.Equal(t, filepath.Join("d_001", "d_000"), g.DirPath(4))
}

func TestHashedDistinctPaths(t *testing.T) {
	g := &Generator{
		Layout:      Hashed,
		Iterations:  500,
		FilesPerDir: 5,
		DirsPerDir:  4,
		TopDirs:     []string{"/top"},
		Prefix:      "p",
		Suffix:      "deep_hashed",
		HostID:      "hostA",
		WorkerID:    "regtest",
	}
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		p := g.FilePath("file_srcdir", i)
		require.False(t, seen[p])
		seen[p] = true
	}
}

func TestHashedDeepTreeMatchesReference(t *testing.T) {
	g := &Generator{
		Layout:      Hashed,
		Iterations:  500,
		FilesPerDir: 5,
		DirsPerDir:  4,
		TopDirs:     []string{"/top"},
		Prefix:      "p",
		Suffix:      "deep_hashed",
		HostID:      "hostA",
		WorkerID:    "regtest",
	}
	got := g.FilePath("file_srcdir", 499)
	want := filepath.Join("/top", "file_srcdir", "h_001", "h_000", "h_001", "p_hostA_regtest_499_deep_hashed")
	assert.Equal(t, want, got)
}

func TestRenamePathDisambiguatesSameSubtree(t *testing.T) {
	g := &Generator{
		Layout:      Sequential,
		FilesPerDir: 10,
		DirsPerDir:  4,
		TopDirs:     []string{"/top"},
		Prefix:      "p",
		Suffix:      "s",
		HostID:      "h1",
		WorkerID:    "00",
	}
	src := g.FilePath("shared", 3)
	dst := g.RenamePath("shared", "shared", 3)
	assert.NotEqual(t, src, dst)
	assert.Contains(t, dst, ".rnm")

	dst2 := g.RenamePath("file_srcdir", "file_dstdir", 3)
	assert.NotContains(t, dst2, ".rnm")
}

func TestTopDirRoundRobin(t *testing.T) {
	g := &Generator{
		Layout:      Sequential,
		FilesPerDir: 100,
		DirsPerDir:  4,
		TopDirs:     []string{"/a", "/b"},
		Prefix:      "p",
		Suffix:      "s",
		HostID:      "h1",
		WorkerID:    "00",
	}
	assert.Equal(t, "/a", g.topDir(0))
	assert.Equal(t, "/b", g.topDir(1))
	assert.Equal(t, "/a", g.topDir(2))
}
