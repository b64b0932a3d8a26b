// Package task runs the decoding of one sentence: it selects a search
// manager, decodes, and feeds every configured output stage.
package task

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/smarthi/MMT/alg/featurevector"
	"github.com/smarthi/MMT/alg/search"
	"github.com/smarthi/MMT/decode"
	"github.com/smarthi/MMT/ff"
	nlp "github.com/smarthi/MMT/nlp/types"
	"github.com/smarthi/MMT/options"
	"github.com/smarthi/MMT/output"
)

var (
	ErrNoSource    = errors.New("translation task has no source")
	ErrNoIOWrapper = errors.New("translation task has no output wrapper")
)

// Pipeline is the loaded decoder shared by every task.
type Pipeline interface {
	Options() *options.Options
	Graphs() []*decode.Graph
	Weights() *featurevector.Vector
	InitializeForInput(t ff.Task) error
	CleanUpAfterSentenceProcessing(t ff.Task)
}

// Decoder pairs a pipeline with the manager backends available to it.
type Decoder struct {
	Pipeline Pipeline
	Backends search.Backends
}

type TranslationTask struct {
	decoder *Decoder
	source  *nlp.Sentence
	io      *output.IOWrapper
	scope   *Scope
	opts    *options.Options
	weights *featurevector.Vector

	mu            sync.RWMutex
	contextWindow []string
}

var (
	_ search.Request = &TranslationTask{}
	_ ff.Task        = &TranslationTask{}
)

// New creates a task with its own scope. io may be nil when only the
// decoding side effects are wanted.
func New(d *Decoder, source *nlp.Sentence, io *output.IOWrapper) *TranslationTask {
	return NewWithScope(d, source, io, NewScope())
}

// NewWithScope creates a task sharing scope with other tasks.
func NewWithScope(d *Decoder, source *nlp.Sentence, io *output.IOWrapper, scope *Scope) *TranslationTask {
	if scope == nil {
		scope = NewScope()
	}
	return &TranslationTask{
		decoder: d,
		source:  source,
		io:      io,
		scope:   scope,
		opts:    d.Pipeline.Options(),
	}
}

func (t *TranslationTask) TranslationID() int {
	if t.source == nil {
		return 0
	}
	return t.source.TranslationID
}

func (t *TranslationTask) Source() *nlp.Sentence     { return t.source }
func (t *TranslationTask) Options() *options.Options { return t.opts }
func (t *TranslationTask) Scope() *Scope             { return t.scope }
func (t *TranslationTask) Graphs() []*decode.Graph   { return t.decoder.Pipeline.Graphs() }

// Weights is the snapshot taken when the task started running.
func (t *TranslationTask) Weights() *featurevector.Vector {
	if t.weights == nil {
		return t.decoder.Pipeline.Weights()
	}
	return t.weights
}

func (t *TranslationTask) ContextWindow() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.contextWindow
}

func (t *TranslationTask) SetContextWindow(window []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.contextWindow = window
}

// Run decodes the source. Outputs are produced only when the task has an
// output wrapper.
func (t *TranslationTask) Run() error {
	if t.source == nil {
		return ErrNoSource
	}
	return t.record(t.run())
}

// RunWithOutput decodes the source and requires an output wrapper.
func (t *TranslationTask) RunWithOutput() error {
	if t.source == nil {
		return ErrNoSource
	}
	if t.io == nil {
		return ErrNoIOWrapper
	}
	return t.record(t.run())
}

func (t *TranslationTask) record(err error) error {
	if err != nil {
		sentencesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("line %d: %w", t.TranslationID(), err)
	}
	sentencesTotal.WithLabelValues("ok").Inc()
	return nil
}

func (t *TranslationTask) run() error {
	start := time.Now()
	id := t.TranslationID()
	t.weights = t.decoder.Pipeline.Weights()

	strategy, err := search.SelectStrategy(t.opts)
	if err != nil {
		return err
	}
	manager, err := search.NewManager(strategy, t, t.decoder.Backends)
	if err != nil {
		return err
	}

	if err := t.decoder.Pipeline.InitializeForInput(t); err != nil {
		return err
	}
	defer t.decoder.Pipeline.CleanUpAfterSentenceProcessing(t)

	decodeStart := time.Now()
	if err := manager.Decode(); err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	decodeSeconds.Observe(time.Since(decodeStart).Seconds())
	if t.opts.Verbose > 1 {
		log.Printf("Line %d: Search took %v", id, time.Since(decodeStart))
	}

	if t.io == nil {
		return nil
	}
	if err := t.outputs(manager); err != nil {
		return err
	}
	if t.opts.Verbose > 0 {
		log.Printf("Line %d: Translation took %v", id, time.Since(start))
	}
	return nil
}

type stage struct {
	name string
	run  func() error
}

// outputs feeds every stage in a fixed order; the first failing stage
// stops the rest.
func (t *TranslationTask) outputs(m search.Manager) error {
	io := t.io
	stages := []stage{
		{"best", func() error { return m.OutputBest(io.SingleBest) }},
		{"word-graph", func() error { return m.OutputWordGraph(io.WordGraph) }},
		{"search-graph", func() error { return m.OutputSearchGraph(io.SearchGraph) }},
		{"search-graph-slf", func() error { return m.OutputSearchGraphSLF(io.SearchGraphSLF) }},
		{"hypergraph", func() error {
			if len(t.opts.Output.SearchGraphHG) == 0 {
				return nil
			}
			return m.OutputSearchGraphAsHypergraph(io.HypergraphOutputFileName(t.TranslationID()), search.PRECISION)
		}},
		{"n-best", func() error { return m.OutputNBest(io.NBest) }},
		{"lattice-samples", func() error { return m.OutputLatticeSamples(io.LatticeSamples) }},
		{"translation-details", func() error { return m.OutputDetailedTranslationReport(io.DetailedTranslation) }},
		{"tree-translation-details", func() error {
			return m.OutputDetailedTreeFragmentsTranslationReport(io.DetailTreeFragments)
		}},
		{"unknowns", func() error { return m.OutputUnknowns(io.Unknowns) }},
		{"alignment", func() error { return m.OutputAlignment(io.Alignment) }},
		{"statistics", func() error { return m.CalcDecoderStatistics(io.Statistics) }},
	}
	for _, s := range stages {
		start := time.Now()
		if err := s.run(); err != nil {
			return fmt.Errorf("output %s: %w", s.name, err)
		}
		elapsed := time.Since(start)
		stageSeconds.WithLabelValues(s.name).Observe(elapsed.Seconds())
		if t.opts.Verbose > 2 {
			log.Printf("Line %d: %s took %v", t.TranslationID(), s.name, elapsed)
		}
	}
	return nil
}
