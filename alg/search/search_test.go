package search

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarthi/MMT/options"
	"github.com/smarthi/MMT/output"
)

// word candidates grow one or two letters at a time up to length 4; each
// 'a' is worth a point.
type word string

func (w word) Score() float64    { return float64(strings.Count(string(w), "a")) }
func (w word) Terminal() bool    { return len(w) >= 4 }
func (w word) Alignment() int    { return len(w) }
func (w word) Signature() string { return string(w) }

type letters struct {
	concurrent bool
}

func (l *letters) StartItem(_ Problem) []Candidate { return []Candidate{word("")} }
func (l *letters) Concurrent() bool                { return l.concurrent }
func (l *letters) Name() string                    { return "letters" }

func (l *letters) Expand(c Candidate, _ Problem) []Candidate {
	w := c.(word)
	var retval []Candidate
	for _, suffix := range []string{"a", "b", "ab", "ba"} {
		if len(w)+len(suffix) <= 4 {
			retval = append(retval, w+word(suffix))
		}
	}
	return retval
}

func TestSearchFindsBest(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		results, stats, err := Search(&letters{concurrent}, nil, 3, 0)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, word("aaaa"), results[0])
		assert.LessOrEqual(t, len(results), 3)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score(), results[i].Score())
		}
		assert.Positive(t, stats.Created)
		assert.Positive(t, stats.Pruned)
		assert.Positive(t, stats.Recombined, "ab+a and a+ba meet as aba")
	}
}

func TestSearchRoundLimit(t *testing.T) {
	_, stats, err := Search(&letters{}, nil, 3, 1)
	assert.ErrorIs(t, err, ErrSearchExhausted)
	assert.Equal(t, 1, stats.Rounds)

	results, stats, err := Search(&letters{}, nil, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, word("aaaa"), results[0])
	assert.LessOrEqual(t, stats.Rounds, 4)
}

func TestAgendaRecombinesAndPrunes(t *testing.T) {
	var stats Stats
	a := NewAgenda(2)
	a.Add(word("ab"), &stats)
	a.Add(word("ab"), &stats)
	a.Add(word("aa"), &stats)
	a.Add(word("bb"), &stats)
	a.Add(word("a"), &stats)
	assert.Equal(t, 1, stats.Recombined)
	assert.Equal(t, 1, stats.Pruned)
	assert.Equal(t, []Candidate{word("a"), word("aa"), word("ab")}, a.Candidates())
}

func TestSelectStrategy(t *testing.T) {
	cases := []struct {
		algo     options.SearchAlgorithm
		parser   options.S2TParsingAlgorithm
		expected Strategy
	}{
		{options.Normal, 0, PhraseBased{options.Normal}},
		{options.CubePruning, 0, PhraseBased{options.CubePruning}},
		{options.NormalBatch, 0, PhraseBased{options.NormalBatch}},
		{options.SyntaxF2S, 0, ForestToString{}},
		{options.SyntaxT2S, 0, ForestToString{Tree: true}},
		{options.SyntaxS2T, options.RecursiveCYKPlus, StringToTree{options.RecursiveCYKPlus}},
		{options.SyntaxS2T, options.Scope3, StringToTree{options.Scope3}},
		{options.SyntaxT2S_SCFG, 0, TreeToStringSCFG{}},
		{options.ChartIncremental, 0, IncrementalChart{}},
		{options.ChartDecoding, 0, Chart{}},
	}
	for _, c := range cases {
		opts := options.Default()
		opts.Search.Algorithm = c.algo
		opts.Syntax.S2TParsing = c.parser
		s, err := SelectStrategy(opts)
		require.NoError(t, err, c.algo.String())
		assert.Equal(t, c.expected, s, c.algo.String())
	}

	opts := options.Default()
	opts.Search.Algorithm = options.SearchAlgorithm(2)
	_, err := SelectStrategy(opts)
	assert.ErrorIs(t, err, ErrUnhandledAlgorithm)

	opts.Search.Algorithm = options.SyntaxS2T
	opts.Syntax.S2TParsing = options.S2TParsingAlgorithm(7)
	_, err = SelectStrategy(opts)
	assert.ErrorIs(t, err, ErrUnhandledAlgorithm)
}

type nopManager struct{ name string }

func (m *nopManager) Decode() error                                          { return nil }
func (m *nopManager) OutputBest(output.Collector) error                      { return nil }
func (m *nopManager) OutputWordGraph(output.Collector) error                 { return nil }
func (m *nopManager) OutputSearchGraph(output.Collector) error               { return nil }
func (m *nopManager) OutputSearchGraphSLF(output.Collector) error            { return nil }
func (m *nopManager) OutputSearchGraphAsHypergraph(string, int) error        { return nil }
func (m *nopManager) OutputNBest(output.Collector) error                     { return nil }
func (m *nopManager) OutputLatticeSamples(output.Collector) error            { return nil }
func (m *nopManager) OutputDetailedTranslationReport(output.Collector) error { return nil }
func (m *nopManager) OutputDetailedTreeFragmentsTranslationReport(output.Collector) error {
	return nil
}
func (m *nopManager) OutputUnknowns(output.Collector) error             { return nil }
func (m *nopManager) OutputAlignment(output.Collector) error            { return nil }
func (m *nopManager) CalcDecoderStatistics(output.StatisticsSink) error { return nil }

func TestNewManagerDispatch(t *testing.T) {
	backends := Backends{
		PhraseBased: func(_ PhraseBased, _ Request) Manager {
			return &nopManager{"pb"}
		},
		StringToTree: func(s StringToTree, _ Request) Manager {
			return &nopManager{"s2t-" + s.Parser.String()}
		},
	}
	m, err := NewManager(PhraseBased{options.Normal}, nil, backends)
	require.NoError(t, err)
	assert.Equal(t, "pb", m.(*nopManager).name)

	m, err = NewManager(StringToTree{options.Scope3}, nil, backends)
	require.NoError(t, err)
	assert.Equal(t, "s2t-scope3", m.(*nopManager).name)

	_, err = NewManager(Chart{}, nil, backends)
	assert.True(t, errors.Is(err, ErrUnhandledAlgorithm))
	_, err = NewManager(nil, nil, backends)
	assert.ErrorIs(t, err, ErrUnhandledAlgorithm)
}
