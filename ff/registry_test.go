package ff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarthi/MMT/options"
)

func TestConstructDefaultIdentities(t *testing.T) {
	r := NewRegistry(nil)
	for _, l := range [][2]string{
		{"WordPenalty", "WordPenalty"},
		{"PhraseDictionaryMemory", "PhraseDictionaryMemory num-features=4"},
		{"PhraseDictionaryMemory", "PhraseDictionaryMemory num-features=2"},
		{"WordPenalty", "WordPenalty"},
	} {
		_, err := r.Construct(l[0], l[1])
		require.NoError(t, err, l[1])
	}
	assert.Equal(t, []string{"WordPenalty0", "PhraseDictionaryMemory0", "PhraseDictionaryMemory1", "WordPenalty1"}, r.Identities())
	f, exists := r.Find("PhraseDictionaryMemory0")
	require.True(t, exists)
	assert.Equal(t, 4, f.NumScores())
	assert.Equal(t, TranslationDictionary, f.Kind())
}

func TestConstructExplicitName(t *testing.T) {
	r := NewRegistry(nil)
	f, err := r.Construct("PhraseDictionaryMemory", "PhraseDictionaryMemory name=TM1 num-features=3 table-limit=5")
	require.NoError(t, err)
	assert.Equal(t, "TM1", f.Identity())
	assert.Equal(t, 5, f.(*PhraseDictionary).TableLimit())
	assert.True(t, r.Has("TM1"))
	assert.False(t, r.Has("PhraseDictionaryMemory0"))
}

func TestConstructErrors(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Construct("NoSuchFeature", "NoSuchFeature")
	assert.ErrorIs(t, err, ErrUnknownFeature)

	_, err = r.Construct("WordPenalty", "WordPenalty tuneable")
	assert.ErrorIs(t, err, ErrMalformedLine)

	_, err = r.Construct("WordPenalty", "WordPenalty colour=red")
	assert.ErrorIs(t, err, ErrUnknownParameter)

	_, err = r.Construct("WordPenalty", "WordPenalty name=WP")
	require.NoError(t, err)
	_, err = r.Construct("PhrasePenalty", "PhrasePenalty name=WP")
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.Equal(t, 1, r.Len())
}

func TestDictionariesInLoadOrder(t *testing.T) {
	r := NewRegistry(nil)
	lines := [][2]string{
		{"PhraseDictionaryMemory", "PhraseDictionaryMemory name=TM0"},
		{"WordPenalty", "WordPenalty"},
		{"Generation", "Generation name=GEN0"},
		{"RuleTable", "RuleTable name=TM1"},
	}
	for _, l := range lines {
		_, err := r.Construct(l[0], l[1])
		require.NoError(t, err)
	}
	translations := r.TranslationDictionaries()
	require.Len(t, translations, 2)
	assert.Equal(t, "TM0", translations[0].Identity())
	assert.Equal(t, "TM1", translations[1].Identity())

	generations := r.GenerationDictionaries()
	require.Len(t, generations, 1)
	assert.Equal(t, "GEN0", generations[0].Identity())

	assert.Len(t, r.Dictionaries(), 3)
	scorers := r.Scorers()
	require.Len(t, scorers, 1)
	assert.Equal(t, "WordPenalty0", scorers[0].Identity())
}

func TestBaseParameters(t *testing.T) {
	r := NewRegistry(nil)
	f, err := r.Construct("Generation", "Generation input-factor=0 output-factor=1,2 tuneable=false")
	require.NoError(t, err)
	assert.Equal(t, FactorMask(1), f.InputFactors())
	assert.Equal(t, FactorMask(6), f.OutputFactors())
	assert.Equal(t, "1,2", f.OutputFactors().String())
	assert.False(t, f.Tuneable())

	_, err = r.Construct("WordPenalty", "WordPenalty num-features=x")
	assert.ErrorIs(t, err, ErrBadParameter)
	_, err = r.Construct("WordPenalty", "WordPenalty output-factor=a")
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestIgnoredFor(t *testing.T) {
	r := NewRegistry(nil)
	f, err := r.Construct("WordPenalty", "WordPenalty")
	require.NoError(t, err)
	opts := options.Default()
	assert.False(t, f.IgnoredFor(opts))
	opts.IgnoreFF = map[string]bool{"WordPenalty0": true}
	assert.True(t, f.IgnoredFor(opts))
	assert.False(t, f.IgnoredFor(nil))
}

func TestFactoryKinds(t *testing.T) {
	kinds := DefaultFactory().Kinds()
	assert.Contains(t, kinds, "KENLM")
	assert.Contains(t, kinds, "RuleTable")
	assert.IsIncreasing(t, kinds)
}
