package ff

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarthi/MMT/options"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPhraseDictionaryLoad(t *testing.T) {
	path := writeFile(t, "phrase-table", `das ||| the ||| 0.7 0.5
das ||| that ||| 0.2 0.4
das ||| it ||| 0.1 0.1
das haus ||| the house ||| 0.9 0.9
`)
	r := NewRegistry(nil)
	f, err := r.Construct("PhraseDictionaryMemory", "PhraseDictionaryMemory num-features=2 table-limit=2 path="+path)
	require.NoError(t, err)
	require.NoError(t, f.Load(options.Default()))

	pd := f.(*PhraseDictionary)
	assert.Equal(t, 2, pd.Len())
	phrases := pd.Lookup([]string{"das"})
	require.Len(t, phrases, 2)
	assert.Equal(t, []string{"the"}, phrases[0].Words)
	assert.Equal(t, []string{"that"}, phrases[1].Words)
	assert.InDelta(t, math.Log(0.7), phrases[0].Scores[0], 1e-9)

	assert.Len(t, pd.Lookup([]string{"das", "haus"}), 1)
	assert.Empty(t, pd.Lookup([]string{"haus"}))
}

func TestPhraseDictionaryRejectsBadLines(t *testing.T) {
	r := NewRegistry(nil)
	f, err := r.Construct("PhraseDictionaryMemory", "PhraseDictionaryMemory num-features=2 path="+writeFile(t, "pt", "a ||| b ||| 0.5\n"))
	require.NoError(t, err)
	assert.Error(t, f.Load(nil))

	f, err = r.Construct("PhraseDictionaryMemory", "PhraseDictionaryMemory path="+writeFile(t, "pt2", "a b 0.5\n"))
	require.NoError(t, err)
	assert.Error(t, f.Load(nil))

	f, err = r.Construct("PhraseDictionaryMemory", "PhraseDictionaryMemory path="+filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Error(t, f.Load(nil))
}

func TestPhraseDictionaryMaxPhraseLength(t *testing.T) {
	r := NewRegistry(nil)
	f, err := r.Construct("PhraseDictionaryMemory", "PhraseDictionaryMemory max-phrase-length=1")
	require.NoError(t, err)
	pd := f.(*PhraseDictionary)
	require.NoError(t, pd.Add([]string{"a"}, []string{"x"}, []float64{1}))
	require.NoError(t, pd.Add([]string{"a", "b"}, []string{"x", "y"}, []float64{1}))
	assert.Len(t, pd.Lookup([]string{"a"}), 1)
	assert.Empty(t, pd.Lookup([]string{"a", "b"}))
	assert.Zero(t, pd.Lookup([]string{"a"})[0].Scores[0])
}

func TestCacheSizeParameter(t *testing.T) {
	r := NewRegistry(nil)
	f, err := r.Construct("PhraseDictionaryMemory", "PhraseDictionaryMemory cache-size=500")
	require.NoError(t, err)
	d := f.(Dictionary)
	assert.Equal(t, 500, d.CacheSize())
	require.NoError(t, d.SetParameter("cache-size", "0"))
	assert.Zero(t, d.CacheSize())
	assert.ErrorIs(t, d.SetParameter("cache-size", "-1"), ErrBadParameter)

	g, err := r.Construct("Generation", "Generation")
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_CACHE_SIZE, g.(Dictionary).CacheSize())
}

func TestGenerationTable(t *testing.T) {
	r := NewRegistry(nil)
	f, err := r.Construct("Generation", "Generation num-features=1 path="+writeFile(t, "gen", "# lemma to tag\nhouse NN 0.9\nhouse VB 0.1\n"))
	require.NoError(t, err)
	require.NoError(t, f.Load(nil))
	gen := f.(Generation)
	generated := gen.Generate("house")
	require.Len(t, generated, 2)
	assert.Equal(t, []string{"NN"}, generated[0].Words)
	assert.Empty(t, gen.Generate("car"))
	assert.Equal(t, FactorMask(2), f.OutputFactors())
}

func TestTargetWordInsertion(t *testing.T) {
	r := NewRegistry(nil)
	f, err := r.Construct("TargetWordInsertionFeature", "TargetWordInsertionFeature name=TWI path="+writeFile(t, "vocab", "the\nhouse\n"))
	require.NoError(t, err)
	require.NoError(t, f.Load(nil))
	scores := f.(SparseScorer).ScoreSparse(nil, strings.Fields("the big house the"))
	assert.Equal(t, map[string]float64{"TWI_the": 2, "TWI_OTHER": 1, "TWI_house": 1}, scores)
	assert.Zero(t, f.NumScores())
}
