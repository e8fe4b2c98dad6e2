package util

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSources(t *testing.T) map[string]string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"_variables.scss": "$primary-color: #2563eb;\n$font-base: \"Inter\", sans-serif;\n",
		"site.css":        ":root {\n  --primary-color: #2563eb;\n  --radius: 8px;\n}",
		"unicode.css":     "/* élégant 🎨 */\n.brand { font-family: \"Noto Sans JP\", sans-serif; }",
		"_empty.scss":     "",
	}
	paths := make(map[string]string, len(files))
	for name, body := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		paths[name] = p
	}
	return paths
}

func TestSourceSet_Read(t *testing.T) {
	paths := writeSources(t)
	s := NewSourceSet(0, nil)

	data, err := s.Read(paths["_variables.scss"])
	require.NoError(t, err)
	assert.Contains(t, string(data), "$primary-color: #2563eb;")

	_, err = s.Read(paths["_variables.scss"])
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, 1, st.Files)
	assert.Equal(t, int64(1), st.Loaded)
	assert.Equal(t, int64(1), st.Hits)
	assert.Positive(t, st.MappedBytes)

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Len())
	assert.Contains(t, string(data), "#2563eb", "copies outlive Close")
}

func TestSourceSet_UnicodeAndEmpty(t *testing.T) {
	paths := writeSources(t)
	s := NewSourceSet(0, nil)
	defer s.Close()

	data, err := s.Read(paths["unicode.css"])
	require.NoError(t, err)
	assert.Contains(t, string(data), "🎨")

	data, err = s.Read(paths["_empty.scss"])
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSourceSet_Limit(t *testing.T) {
	paths := writeSources(t)
	s := NewSourceSet(1, nil)
	defer s.Close()

	_, err := s.Read(paths["site.css"])
	require.NoError(t, err)

	_, err = s.Read(paths["unicode.css"])
	assert.ErrorIs(t, err, ErrSourceLimit)

	_, err = s.Read(paths["site.css"])
	assert.NoError(t, err, "held files stay readable")
}

func TestSourceSet_Missing(t *testing.T) {
	s := NewSourceSet(0, nil)
	defer s.Close()

	_, err := s.Read(filepath.Join(t.TempDir(), "missing.scss"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 0, s.Len())
}

func TestSourceSet_Concurrent(t *testing.T) {
	paths := writeSources(t)
	s := NewSourceSet(0, nil)
	defer s.Close()

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := paths["site.css"]
			if i%2 == 0 {
				p = paths["_variables.scss"]
			}
			if _, err := s.Read(p); err != nil {
				errs <- fmt.Errorf("reader %d: %w", i, err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	st := s.Stats()
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, int64(n-2), st.Hits)
}
