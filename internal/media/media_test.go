package media

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Indexable(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		name  string
		path  string
		isDir bool
		want  bool
	}{
		{"video", "/srv/a/movie.mp4", false, true},
		{"uppercase extension", "/srv/IMG_01.JPG", false, true},
		{"double extension", "/srv/archive.tar.gz", false, true},
		{"no extension", "/srv/README", false, false},
		{"hidden file", "/srv/.DS_Store", false, false},
		{"hidden with extension", "/srv/.hidden.mp4", false, false},
		{"encrypted sidecar", "/srv/movie.mp4.enc", false, false},
		{"sidecar any case", "/srv/movie.ENC", false, false},
		{"directory", "/srv/a.dir", true, false},
		{"trailing dot", "/srv/weird.", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Indexable(tt.path, tt.isDir))
		})
	}
}

func TestClassifier_ExcludeGlobs(t *testing.T) {
	// Given: a classifier with custom sidecars and globs
	c, err := NewClassifier(ClassifierOptions{
		SidecarExtensions: []string{".part"},
		Exclude:           []string{"**/@eaDir/**", "**/Thumbs.db", "private/**"},
	})
	require.NoError(t, err)
	root := filepath.FromSlash("/srv")

	// Then: files and directories match relative to root
	assert.False(t, c.IndexableUnder(root, filepath.FromSlash("/srv/a/Thumbs.db"), false))
	assert.False(t, c.IndexableUnder(root, filepath.FromSlash("/srv/dl/x.part"), false))
	assert.True(t, c.IndexableUnder(root, filepath.FromSlash("/srv/a/x.enc"), false))
	assert.True(t, c.IndexableUnder(root, filepath.FromSlash("/srv/a/ok.png"), false))

	assert.True(t, c.SkipDir(root, filepath.FromSlash("/srv/a/@eaDir")))
	assert.True(t, c.SkipDir(root, filepath.FromSlash("/srv/private")))
	assert.True(t, c.SkipDir(root, filepath.FromSlash("/srv/a/.cache")))
	assert.False(t, c.SkipDir(root, filepath.FromSlash("/srv/a")))
	assert.False(t, c.SkipDir(root, root))
}

func TestNewClassifier_RejectsBadPattern(t *testing.T) {
	_, err := NewClassifier(ClassifierOptions{Exclude: []string{"[unclosed"}})
	assert.ErrorContains(t, err, "invalid exclude pattern")
}

func TestID_StableAndDistinct(t *testing.T) {
	// Given: equivalent spellings of one path
	a := ID("/srv/media/a/f.mp4")
	b := ID("/srv/media/a/../a/f.mp4")

	// Then: the id is a pure function of the cleaned path
	assert.Equal(t, a, b)
	assert.Equal(t, a, ID("/srv/media/a/f.mp4"))
	assert.NotEqual(t, a, ID("/srv/media/a/g.mp4"))
	assert.NotEqual(t, a, ID("/srv/media/b/f.mp4"))
}

func TestID_DistinctOverManyPaths(t *testing.T) {
	seen := make(map[uint64]string)
	for i := 0; i < 5000; i++ {
		p := filepath.Join("/srv", "dir", string(rune('a'+i%26)), "clip-"+strconv.Itoa(i)+".mp4")
		id := ID(p)
		prev, dup := seen[id]
		require.False(t, dup, "collision between %s and %s", p, prev)
		seen[id] = p
	}
}

func TestTags(t *testing.T) {
	root := filepath.FromSlash("/srv/media")

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"nested", "/srv/media/a/b/f.mp4", []string{"a", "b"}},
		{"direct child", "/srv/media/f.mp4", []string{}},
		{"outside root", "/other/x/f.mp4", []string{}},
		{"sibling prefix", "/srv/media2/x/f.mp4", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tags(root, filepath.FromSlash(tt.path))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFileMetadata(t *testing.T) {
	root := filepath.FromSlash("/srv/media")
	path := filepath.FromSlash("/srv/media/Trips/2024/Beach.JPG")

	f := NewFileMetadata(root, path)

	assert.Equal(t, "Beach.JPG", f.Name)
	assert.Equal(t, "jpg", f.Type)
	assert.Equal(t, path, f.Path)
	assert.Equal(t, ID(path), f.ID)
	assert.Equal(t, []string{"Trips", "2024"}, f.Tags)
}

func TestFileMetadata_JSONFieldNames(t *testing.T) {
	f := FileMetadata{Name: "f.mp4", ID: 18446744073709551615, Type: "mp4", Path: "/r/f.mp4", Tags: []string{}}

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"f.mp4","id":18446744073709551615,"ty":"mp4","path":"/r/f.mp4","tags":[]}`, string(data))
}

func TestFileMetadata_UnmarshalID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    uint64
		wantErr bool
	}{
		{"number", `42`, 42, false},
		{"numeric string", `"42"`, 42, false},
		{"max as string", `"18446744073709551615"`, 18446744073709551615, false},
		{"max as number", `18446744073709551615`, 18446744073709551615, false},
		{"null", `null`, 0, false},
		{"not numeric", `"abc"`, 0, true},
		{"negative", `-1`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := `{"name":"f.mp4","id":` + tt.id + `,"ty":"mp4","path":"/r/f.mp4","tags":["r"]}`

			var f FileMetadata
			err := json.Unmarshal([]byte(data), &f)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.ID)
			assert.Equal(t, "f.mp4", f.Name)
			assert.Equal(t, "mp4", f.Type)
			assert.Equal(t, []string{"r"}, f.Tags)
		})
	}
}

func TestFileMetadata_HasTagsAndEqual(t *testing.T) {
	f := FileMetadata{Name: "f.mp4", ID: 1, Type: "mp4", Path: "/r/a/b/f.mp4", Tags: []string{"a", "b"}}

	assert.True(t, f.HasTags(nil))
	assert.True(t, f.HasTags([]string{"b", "a"}))
	assert.False(t, f.HasTags([]string{"a", "c"}))

	g := FileMetadata{Name: "g.mp4", ID: 2, Type: "mp4", Path: "/r/g.mp4"}
	assert.True(t, g.Equal(g.Normalize()))
	assert.Equal(t, []string{}, g.Normalize().Tags)
	assert.False(t, f.Equal(g))
}

func TestReadPhotoInfo_NoExif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a jpeg"), 0o644))

	info, err := ReadPhotoInfo(path)
	require.NoError(t, err)
	assert.Nil(t, info)

	_, err = ReadPhotoInfo(path + ".missing")
	assert.Error(t, err)

	assert.True(t, HasExif("jpeg"))
	assert.False(t, HasExif("mp4"))
}
