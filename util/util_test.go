package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMD5(t *testing.T) {
	sum, err := MD5(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", sum)

	path := filepath.Join(t.TempDir(), "moses.ini")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	sum, err = MD5File(path)
	require.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", sum)

	_, err = MD5File(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEnumSet(t *testing.T) {
	e := NewEnumSet(2)
	i, added := e.Add("TM0")
	assert.True(t, added)
	assert.Equal(t, 0, i)
	e.Add("LM0")
	i, added = e.Add("TM0")
	assert.False(t, added)
	assert.Equal(t, 0, i)
	assert.Equal(t, []string{"TM0", "LM0"}, e.Values())
	assert.Equal(t, "LM0", e.ValueOf(1))
	assert.True(t, e.Contains("LM0"))

	e.Frozen = true
	assert.Panics(t, func() { e.Add("WP0") })
}

func TestScanners(t *testing.T) {
	ints, err := ScanInts([]string{"1", " 2"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ints)
	_, err = ScanFloats([]string{"x"})
	assert.Error(t, err)

	for _, s := range []string{"", "yes", "1"} {
		b, err := ScanBool(s)
		require.NoError(t, err)
		assert.True(t, b, s)
	}
	_, err = ScanBool("maybe")
	assert.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, TokenizeOn("a,,b", ","))
	assert.Equal(t, 3, Max(3, -1))
}
