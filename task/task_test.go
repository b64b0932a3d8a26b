package task

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarthi/MMT/alg/featurevector"
	"github.com/smarthi/MMT/alg/search"
	"github.com/smarthi/MMT/alg/search/monotone"
	"github.com/smarthi/MMT/decode"
	"github.com/smarthi/MMT/ff"
	nlp "github.com/smarthi/MMT/nlp/types"
	"github.com/smarthi/MMT/options"
	"github.com/smarthi/MMT/output"
	"github.com/smarthi/MMT/pipeline"
	"github.com/smarthi/MMT/util/conf"
)

type calls struct {
	mu    sync.Mutex
	names []string
}

func (c *calls) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
}

type fakePipeline struct {
	opts  *options.Options
	calls *calls
}

func (p *fakePipeline) Options() *options.Options      { return p.opts }
func (p *fakePipeline) Graphs() []*decode.Graph        { return nil }
func (p *fakePipeline) Weights() *featurevector.Vector { return featurevector.NewVector() }

func (p *fakePipeline) InitializeForInput(_ ff.Task) error {
	p.calls.add("init")
	return nil
}

func (p *fakePipeline) CleanUpAfterSentenceProcessing(_ ff.Task) {
	p.calls.add("cleanup")
}

// fakeManager records every call; failAt names a stage that returns an
// error.
type fakeManager struct {
	calls  *calls
	failAt string
}

func (m *fakeManager) call(name string) error {
	m.calls.add(name)
	if name == m.failAt {
		return errors.New(name + " failed")
	}
	return nil
}

func (m *fakeManager) Decode() error                            { return m.call("decode") }
func (m *fakeManager) OutputBest(output.Collector) error        { return m.call("best") }
func (m *fakeManager) OutputWordGraph(output.Collector) error   { return m.call("word-graph") }
func (m *fakeManager) OutputSearchGraph(output.Collector) error { return m.call("search-graph") }
func (m *fakeManager) OutputNBest(output.Collector) error       { return m.call("n-best") }
func (m *fakeManager) OutputUnknowns(output.Collector) error    { return m.call("unknowns") }
func (m *fakeManager) OutputAlignment(output.Collector) error   { return m.call("alignment") }

func (m *fakeManager) OutputSearchGraphSLF(output.Collector) error {
	return m.call("search-graph-slf")
}

func (m *fakeManager) OutputSearchGraphAsHypergraph(string, int) error {
	return m.call("hypergraph")
}

func (m *fakeManager) OutputLatticeSamples(output.Collector) error {
	return m.call("lattice-samples")
}

func (m *fakeManager) OutputDetailedTranslationReport(output.Collector) error {
	return m.call("translation-details")
}

func (m *fakeManager) OutputDetailedTreeFragmentsTranslationReport(output.Collector) error {
	return m.call("tree-translation-details")
}

func (m *fakeManager) CalcDecoderStatistics(output.StatisticsSink) error {
	return m.call("statistics")
}

func fakeDecoder(opts *options.Options, failAt string) (*Decoder, *calls) {
	c := &calls{}
	return &Decoder{
		Pipeline: &fakePipeline{opts, c},
		Backends: search.Backends{
			PhraseBased: func(_ search.PhraseBased, _ search.Request) search.Manager {
				return &fakeManager{calls: c, failAt: failAt}
			},
		},
	}, c
}

func quietOptions() *options.Options {
	opts := options.Default()
	opts.Verbose = 0
	return opts
}

var allStages = []string{
	"best", "word-graph", "search-graph", "search-graph-slf", "n-best", "lattice-samples",
	"translation-details", "tree-translation-details", "unknowns", "alignment", "statistics",
}

func TestRunWithoutOutputOnlyDecodes(t *testing.T) {
	d, c := fakeDecoder(quietOptions(), "")
	task := New(d, nlp.NewSentence(1, "das haus", "|"), nil)
	require.NoError(t, task.Run())
	assert.Equal(t, []string{"init", "decode", "cleanup"}, c.names)
}

func TestPreconditions(t *testing.T) {
	d, c := fakeDecoder(quietOptions(), "")
	assert.ErrorIs(t, New(d, nil, &output.IOWrapper{}).Run(), ErrNoSource)
	assert.ErrorIs(t, New(d, nil, &output.IOWrapper{}).RunWithOutput(), ErrNoSource)
	assert.ErrorIs(t, New(d, nlp.NewSentence(0, "x", "|"), nil).RunWithOutput(), ErrNoIOWrapper)
	assert.Empty(t, c.names)
}

func TestStageOrder(t *testing.T) {
	d, c := fakeDecoder(quietOptions(), "")
	require.NoError(t, New(d, nlp.NewSentence(0, "x", "|"), &output.IOWrapper{}).RunWithOutput())
	expected := append([]string{"init", "decode"}, allStages...)
	assert.Equal(t, append(expected, "cleanup"), c.names)

	opts := quietOptions()
	opts.Output.SearchGraphHG = t.TempDir()
	d, c = fakeDecoder(opts, "")
	require.NoError(t, New(d, nlp.NewSentence(0, "x", "|"), &output.IOWrapper{}).RunWithOutput())
	assert.Equal(t, "hypergraph", c.names[6], "hypergraph follows the SLF graph")
	assert.Len(t, c.names, len(allStages)+4)
}

func TestStageErrorAborts(t *testing.T) {
	d, c := fakeDecoder(quietOptions(), "n-best")
	err := New(d, nlp.NewSentence(4, "x", "|"), &output.IOWrapper{}).RunWithOutput()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4: output n-best: n-best failed")
	assert.NotContains(t, c.names, "lattice-samples")
	assert.Equal(t, "cleanup", c.names[len(c.names)-1])
}

func TestUnhandledAlgorithm(t *testing.T) {
	opts := quietOptions()
	opts.Search.Algorithm = options.ChartDecoding
	d, c := fakeDecoder(opts, "")
	err := New(d, nlp.NewSentence(0, "x", "|"), nil).Run()
	assert.ErrorIs(t, err, search.ErrUnhandledAlgorithm)
	assert.Empty(t, c.names)
}

func TestScopeAndContextWindow(t *testing.T) {
	d, _ := fakeDecoder(quietOptions(), "")
	scope := NewScope()
	scope.Set("domain", "news")
	first := NewWithScope(d, nlp.NewSentence(0, "a", "|"), nil, scope)
	second := NewWithScope(d, nlp.NewSentence(1, "b", "|"), nil, scope)
	assert.Same(t, first.Scope(), second.Scope())
	value, ok := second.Scope().Get("domain")
	assert.True(t, ok)
	assert.Equal(t, "news", value)

	other := New(d, nlp.NewSentence(2, "c", "|"), nil)
	assert.NotEqual(t, scope.ID, other.Scope().ID)

	assert.Nil(t, first.ContextWindow())
	first.SetContextWindow([]string{"previous sentence"})
	assert.Equal(t, []string{"previous sentence"}, first.ContextWindow())
}

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "phrase-table")
	require.NoError(t, os.WriteFile(table, []byte("das ||| the ||| 0.9\nhaus ||| house ||| 0.8\n"), 0o644))
	ini := strings.ReplaceAll(`
[verbose]
0
[feature]
WordPenalty
PhraseDictionaryMemory name=TM0 path=$TABLE
[weight]
WordPenalty0= -1
TM0= 1
[output-search-graph-hypergraph]
$DIR/hg
`, "$TABLE", table)
	params, err := conf.ParseIni(strings.NewReader(strings.ReplaceAll(ini, "$DIR", dir)))
	require.NoError(t, err)
	p, err := pipeline.Load(params, nil)
	require.NoError(t, err)

	var best bytes.Buffer
	io, err := output.NewIOWrapper(p.Options(), &best, 0)
	require.NoError(t, err)
	d := &Decoder{Pipeline: p, Backends: search.Backends{PhraseBased: monotone.New}}

	for i, line := range []string{"das haus", "haus das auto"} {
		require.NoError(t, New(d, nlp.NewSentence(i, line, "|"), io).RunWithOutput())
	}
	require.NoError(t, io.Close())
	assert.Equal(t, "the house\nhouse the auto\n", best.String())
	assert.FileExists(t, filepath.Join(dir, "hg", "1.hg"))
}
