// Package monotone is a phrase-based manager that translates the source
// left to right without reordering. It honours decode graphs and their
// backoff thresholds, and passes unknown words through.
package monotone

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smarthi/MMT/alg/featurevector"
	"github.com/smarthi/MMT/alg/search"
	"github.com/smarthi/MMT/decode"
	"github.com/smarthi/MMT/ff"
	nlp "github.com/smarthi/MMT/nlp/types"
)

const (
	MAX_GENERATION_OPTIONS = 10
)

var Log bool

type option struct {
	graph   int
	start   int
	source  []string
	target  []string
	scores  map[string][]float64
	sparse  featurevector.Sparse
	static  float64
	unknown bool
}

type contextScorer struct {
	identity string
	scorer   ff.ContextScorer
}

// graphScorers are the claimed features of one graph, by capability.
type graphScorers struct {
	phrase  []ff.FeatureFunction
	sparse  []ff.SparseScorer
	context []contextScorer
	unknown []ff.FeatureFunction
}

type hypothesis struct {
	id         int
	prev       *hypothesis
	opt        *option
	covered    int
	terminal   bool
	history    []string
	context    map[string][]float64
	score      float64
	transition float64
}

var _ search.Candidate = &hypothesis{}

func (h *hypothesis) Score() float64    { return h.score }
func (h *hypothesis) Terminal() bool    { return h.terminal }
func (h *hypothesis) Alignment() int    { return h.covered }
func (h *hypothesis) Signature() string { return strings.Join(h.history, " ") }

// path returns the hypotheses from the first phrase to h.
func (h *hypothesis) path() []*hypothesis {
	var retval []*hypothesis
	for cur := h; cur != nil && cur.opt != nil; cur = cur.prev {
		retval = append(retval, cur)
	}
	for i, j := 0, len(retval)-1; i < j; i, j = i+1, j-1 {
		retval[i], retval[j] = retval[j], retval[i]
	}
	return retval
}

type Manager struct {
	BeamSize       int
	ConcurrentExec bool

	req       search.Request
	tokens    []string
	words     []string
	delimiter string
	weights   *featurevector.Vector
	graphs    []*decode.Graph
	scorers   []graphScorers
	options   [][][]*option
	order     int

	mu      sync.Mutex
	arcs    []*hypothesis
	results []*hypothesis
	stats   search.Stats
	decoded bool
	elapsed time.Duration
}

var (
	_ search.Interface = &Manager{}
	_ search.Manager   = &Manager{}
)

// New builds a manager for req; it matches search.Backends.PhraseBased.
func New(_ search.PhraseBased, req search.Request) search.Manager {
	return NewManager(req)
}

func NewManager(req search.Request) *Manager {
	m := &Manager{req: req, BeamSize: 100}
	if opts := req.Options(); opts != nil {
		m.BeamSize = opts.Search.StackSize
		m.delimiter = opts.FactorDelimiter
	}
	return m
}

func (m *Manager) Name() string     { return "Monotone Phrase-Based Beam" }
func (m *Manager) Concurrent() bool { return m.ConcurrentExec }

func (m *Manager) setup() {
	sent := m.req.Source()
	m.tokens = make([]string, len(sent.Tokens))
	m.words = make([]string, len(sent.Tokens))
	for i, tok := range sent.Tokens {
		m.tokens[i] = string(tok)
		m.words[i] = tok.Factor(0, m.delimiter)
	}
	m.weights = m.req.Weights()
	if m.weights == nil {
		m.weights = featurevector.NewVector()
	}
	m.graphs = m.req.Graphs()
	m.scorers = make([]graphScorers, len(m.graphs))
	m.order = 1
	for i, g := range m.graphs {
		for _, f := range g.Claimed() {
			if _, ok := f.(ff.PhraseScorer); ok {
				m.scorers[i].phrase = append(m.scorers[i].phrase, f)
			}
			if s, ok := f.(ff.SparseScorer); ok {
				m.scorers[i].sparse = append(m.scorers[i].sparse, s)
			}
			if s, ok := f.(ff.ContextScorer); ok {
				m.scorers[i].context = append(m.scorers[i].context, contextScorer{f.Identity(), s})
				if s.Order() > m.order {
					m.order = s.Order()
				}
			}
			if _, ok := f.(ff.UnknownScorer); ok {
				m.scorers[i].unknown = append(m.scorers[i].unknown, f)
			}
		}
	}
}

func (m *Manager) maxPhraseLength() int {
	max := 1
	for _, g := range m.graphs {
		for _, t := range g.Translations() {
			if l := t.MaxPhraseLength(); l > max {
				max = l
			}
		}
	}
	return max
}

// collectOptions fills the translation options of every span. Graphs
// after the first with a backoff threshold only contribute to spans no
// longer than the threshold that no earlier graph covers.
func (m *Manager) collectOptions() {
	n := len(m.words)
	maxLen := m.maxPhraseLength()
	m.options = make([][][]*option, n)
	for start := 0; start < n; start++ {
		m.options[start] = make([][]*option, maxLen)
		for length := 1; length <= maxLen && start+length <= n; length++ {
			span := m.words[start : start+length]
			for gi, g := range m.graphs {
				if gi > 0 && g.Backoff > 0 && (length > g.Backoff || len(m.options[start][length-1]) > 0) {
					continue
				}
				for _, opt := range m.expandGraph(gi, span) {
					opt.start = start
					m.options[start][length-1] = append(m.options[start][length-1], opt)
				}
			}
		}
		if len(m.options[start][0]) == 0 {
			m.options[start][0] = []*option{m.unknownOption(start)}
		}
	}
}

func firstFactor(mask ff.FactorMask) int {
	for i := 0; i < 64; i++ {
		if mask&(1<<uint(i)) != 0 {
			return i
		}
	}
	return 0
}

type generated struct {
	words  []string
	scores []float64
}

// generate expands every word of target through g, keeping at most
// MAX_GENERATION_OPTIONS combinations.
func (m *Manager) generate(g ff.Generation, target []string) []generated {
	in := firstFactor(g.InputFactors())
	combos := []generated{{scores: make([]float64, g.NumScores())}}
	for _, word := range target {
		alternatives := g.Generate(nlp.Token(word).Factor(in, m.delimiter))
		if len(alternatives) == 0 {
			return nil
		}
		var next []generated
		for _, combo := range combos {
			for _, alt := range alternatives {
				if len(next) == MAX_GENERATION_OPTIONS {
					break
				}
				words := append(append([]string(nil), combo.words...), word+m.delimiter+alt.Words[0])
				scores := append([]float64(nil), combo.scores...)
				for i, s := range alt.Scores {
					if i < len(scores) {
						scores[i] += s
					}
				}
				next = append(next, generated{words, scores})
			}
		}
		combos = next
	}
	return combos
}

// expandGraph runs the steps of graph gi over span.
func (m *Manager) expandGraph(gi int, span []string) []*option {
	g := m.graphs[gi]
	var partial []*option
	for si := range g.Steps {
		step := &g.Steps[si]
		var next []*option
		switch step.Kind {
		case decode.Translate:
			t, ok := step.Translation()
			if !ok {
				return nil
			}
			phrases := t.Lookup(span)
			if si == 0 {
				for _, p := range phrases {
					next = append(next, &option{
						graph:  gi,
						source: span,
						target: append([]string(nil), p.Words...),
						scores: map[string][]float64{t.Identity(): p.Scores},
					})
				}
				break
			}
			for _, opt := range partial {
				for _, p := range phrases {
					if len(p.Words) != len(opt.target) {
						continue
					}
					merged := copyOption(opt)
					for j := range merged.target {
						merged.target[j] += m.delimiter + p.Words[j]
					}
					merged.scores[t.Identity()] = p.Scores
					next = append(next, merged)
				}
			}
		case decode.Generate:
			gen, ok := step.Generation()
			if !ok {
				return nil
			}
			for _, opt := range partial {
				for _, combo := range m.generate(gen, opt.target) {
					expanded := copyOption(opt)
					expanded.target = combo.words
					expanded.scores[gen.Identity()] = combo.scores
					next = append(next, expanded)
				}
			}
		}
		partial = next
		if len(partial) == 0 {
			return nil
		}
	}
	for _, opt := range partial {
		m.scoreOption(opt)
	}
	return partial
}

func copyOption(opt *option) *option {
	copied := *opt
	copied.target = append([]string(nil), opt.target...)
	copied.scores = make(map[string][]float64, len(opt.scores)+1)
	for k, v := range opt.scores {
		copied.scores[k] = v
	}
	return &copied
}

// scoreOption applies the context-free scorers of the option's graph and
// computes its weighted score.
func (m *Manager) scoreOption(opt *option) {
	scorers := m.scorers[opt.graph]
	for _, f := range scorers.phrase {
		opt.scores[f.Identity()] = f.(ff.PhraseScorer).ScorePhrase(opt.source, opt.target)
	}
	opt.sparse = make(featurevector.Sparse)
	for _, s := range scorers.sparse {
		opt.sparse = opt.sparse.Add(s.ScoreSparse(opt.source, opt.target))
	}
	opt.static = m.weighted(opt.scores, opt.sparse)
}

func (m *Manager) unknownOption(start int) *option {
	opt := &option{
		start:   start,
		source:  m.words[start : start+1],
		target:  []string{m.tokens[start]},
		scores:  make(map[string][]float64),
		sparse:  make(featurevector.Sparse),
		unknown: true,
	}
	if len(m.scorers) > 0 {
		for _, f := range m.scorers[0].unknown {
			opt.scores[f.Identity()] = f.(ff.UnknownScorer).ScoreUnknown(m.words[start])
		}
	}
	opt.static = m.weighted(opt.scores, opt.sparse)
	return opt
}

func (m *Manager) weighted(scores map[string][]float64, sparse featurevector.Sparse) float64 {
	var total float64
	for identity, s := range scores {
		total += m.weights.Dot(identity, s)
	}
	for name, v := range sparse {
		total += m.weights.SparseWeight(name) * v
	}
	return total
}

func (m *Manager) register(h *hypothesis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.id = len(m.arcs)
	m.arcs = append(m.arcs, h)
}

func (m *Manager) StartItem(_ search.Problem) []search.Candidate {
	root := &hypothesis{terminal: len(m.words) == 0}
	m.register(root)
	return []search.Candidate{root}
}

func (m *Manager) Expand(c search.Candidate, _ search.Problem) []search.Candidate {
	h := c.(*hypothesis)
	var retval []search.Candidate
	for _, byLength := range m.options[h.covered] {
		for _, opt := range byLength {
			retval = append(retval, m.extend(h, opt))
		}
	}
	return retval
}

func (m *Manager) extend(h *hypothesis, opt *option) *hypothesis {
	next := &hypothesis{
		prev:       h,
		opt:        opt,
		covered:    h.covered + len(opt.source),
		transition: opt.static,
	}
	next.terminal = next.covered == len(m.words)
	history := append(append([]string(nil), h.history...), opt.target...)
	if len(m.scorers) > 0 {
		next.context = make(map[string][]float64)
		for _, cs := range m.scorers[opt.graph].context {
			scores := cs.scorer.ScoreContext(h.history, opt.target)
			if next.terminal {
				for i, s := range cs.scorer.ScoreEnd(history) {
					if i < len(scores) {
						scores[i] += s
					}
				}
			}
			next.context[cs.identity] = scores
			next.transition += m.weights.Dot(cs.identity, scores)
		}
	}
	if keep := m.order - 1; len(history) > keep {
		history = history[len(history)-keep:]
	}
	next.history = history
	next.score = h.score + next.transition
	m.register(next)
	return next
}

func (m *Manager) Decode() error {
	start := time.Now()
	m.setup()
	m.collectOptions()
	// every round covers at least one more word
	results, stats, err := search.Search(m, nil, m.BeamSize, len(m.words)+1)
	if err != nil {
		return err
	}
	m.results = make([]*hypothesis, len(results))
	for i, r := range results {
		m.results[i] = r.(*hypothesis)
	}
	m.stats = stats
	m.elapsed = time.Since(start)
	m.decoded = true
	if Log {
		log.Printf("Line %d: %d hypotheses, %d recombined, %d pruned in %v", m.req.TranslationID(), stats.Created, stats.Recombined, stats.Pruned, m.elapsed)
	}
	return nil
}

func (m *Manager) best() *hypothesis {
	if len(m.results) == 0 {
		return nil
	}
	return m.results[0]
}

// breakdown sums the unweighted scores along the path of h.
func (m *Manager) breakdown(h *hypothesis) (map[string][]float64, featurevector.Sparse) {
	dense := make(map[string][]float64)
	sparse := make(featurevector.Sparse)
	add := func(identity string, scores []float64) {
		cur := dense[identity]
		if len(cur) < len(scores) {
			cur = append(cur, make([]float64, len(scores)-len(cur))...)
		}
		for i, s := range scores {
			cur[i] += s
		}
		dense[identity] = cur
	}
	for _, step := range h.path() {
		for identity, scores := range step.opt.scores {
			add(identity, scores)
		}
		for identity, scores := range step.context {
			add(identity, scores)
		}
		sparse = sparse.Add(step.opt.sparse)
	}
	return dense, sparse
}

func sortedKeys(dense map[string][]float64) []string {
	keys := make([]string, 0, len(dense))
	for k := range dense {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
