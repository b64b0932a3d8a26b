package output

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarthi/MMT/options"
)

func TestOrderedCollectorReorders(t *testing.T) {
	var buf bytes.Buffer
	c := NewOrderedCollector(&buf, 0)
	require.NoError(t, c.Write(2, "two\n"))
	require.NoError(t, c.Write(1, "one\n"))
	assert.Empty(t, buf.String())
	assert.Equal(t, 2, c.Pending())
	require.NoError(t, c.Write(0, "zero\n"))
	assert.Equal(t, "zero\none\ntwo\n", buf.String())
	assert.Zero(t, c.Pending())

	assert.Error(t, c.Write(1, "again\n"))
}

func TestOrderedCollectorConcurrent(t *testing.T) {
	var buf bytes.Buffer
	c := NewOrderedCollector(&buf, 1)
	var wg sync.WaitGroup
	for i := 5; i >= 1; i-- {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, c.Write(id, string(rune('a'+id-1))))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, "abcde", buf.String())
}

func TestOrderedCollectorFlushSkipsGaps(t *testing.T) {
	var buf bytes.Buffer
	c := NewOrderedCollector(&buf, 0)
	require.NoError(t, c.Write(1, "one\n"))
	require.NoError(t, c.Write(3, "three\n"))
	require.NoError(t, c.Flush())
	assert.Equal(t, "one\nthree\n", buf.String())
}

func TestIOWrapperOpensConfiguredOutputs(t *testing.T) {
	dir := t.TempDir()
	opts := options.Default()
	opts.Output.NBestFile = filepath.Join(dir, "nbest.txt")
	opts.Output.UnknownsFile = filepath.Join(dir, "unk.txt")
	opts.Output.SearchGraphHG = filepath.Join(dir, "hg")

	var best bytes.Buffer
	w, err := NewIOWrapper(opts, &best, 0)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	assert.NotNil(t, w.SingleBest)
	assert.NotNil(t, w.NBest)
	assert.NotNil(t, w.Unknowns)
	assert.Nil(t, w.WordGraph)
	assert.Nil(t, w.Alignment)
	assert.Equal(t, filepath.Join(dir, "hg", "7.hg"), w.HypergraphOutputFileName(7))

	require.NoError(t, w.NBest.Write(0, "0 ||| a ||| -1\n"))
	require.NoError(t, w.Close())
	data, err := os.ReadFile(opts.Output.NBestFile)
	require.NoError(t, err)
	assert.Equal(t, "0 ||| a ||| -1\n", string(data))
}

func TestIOWrapperFailsOnUnwritablePath(t *testing.T) {
	opts := options.Default()
	opts.Output.AlignmentOutputFile = filepath.Join(t.TempDir(), "missing", "align.txt")
	_, err := NewIOWrapper(opts, nil, 0)
	assert.Error(t, err)
}
