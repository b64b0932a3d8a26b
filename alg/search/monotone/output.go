package monotone

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/smarthi/MMT/alg/search"
	nlp "github.com/smarthi/MMT/nlp/types"
	"github.com/smarthi/MMT/output"
	"github.com/smarthi/MMT/util"
)

func (m *Manager) ready(c output.Collector) (bool, error) {
	if c == nil {
		return false, nil
	}
	if !m.decoded {
		return false, search.ErrNotDecoded
	}
	return true, nil
}

func (m *Manager) id() int { return m.req.TranslationID() }

// surface projects the target of h onto its first factor.
func (m *Manager) surface(h *hypothesis) []string {
	var words []string
	for _, step := range h.path() {
		for _, w := range step.opt.target {
			words = append(words, nlp.Token(w).Surface(m.delimiter))
		}
	}
	return words
}

func (m *Manager) OutputBest(c output.Collector) error {
	if ok, err := m.ready(c); !ok {
		return err
	}
	var line string
	if best := m.best(); best != nil {
		line = strings.Join(m.surface(best), " ")
	}
	return c.Write(m.id(), line+"\n")
}

func (m *Manager) scoreString(h *hypothesis) string {
	dense, sparse := m.breakdown(h)
	var b strings.Builder
	for i, identity := range sortedKeys(dense) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(identity)
		b.WriteByte('=')
		for _, s := range dense[identity] {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatFloat(s, 'g', 6, 64))
		}
	}
	for _, name := range sparse.Keys() {
		fmt.Fprintf(&b, " %s= %g", name, sparse[name])
	}
	return b.String()
}

func (m *Manager) nbestLine(h *hypothesis) string {
	return fmt.Sprintf("%d ||| %s ||| %s ||| %g\n", m.id(), strings.Join(m.surface(h), " "), m.scoreString(h), h.score)
}

func (m *Manager) OutputNBest(c output.Collector) error {
	if ok, err := m.ready(c); !ok {
		return err
	}
	size := 1
	distinct := false
	if opts := m.req.Options(); opts != nil {
		size = opts.Output.NBestSize
		distinct = opts.Output.NBestDistinct
	}
	var b strings.Builder
	seen := make(map[string]bool)
	written := 0
	for _, h := range m.results {
		if written >= size {
			break
		}
		if distinct {
			key := strings.Join(m.surface(h), " ")
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		b.WriteString(m.nbestLine(h))
		written++
	}
	return c.Write(m.id(), b.String())
}

// OutputLatticeSamples draws translations from the final stack in
// proportion to their probability. Draws are reproducible per sentence.
func (m *Manager) OutputLatticeSamples(c output.Collector) error {
	if ok, err := m.ready(c); !ok {
		return err
	}
	size := 0
	if opts := m.req.Options(); opts != nil {
		size = opts.Output.LatticeSamplesSize
	}
	if len(m.results) == 0 || size == 0 {
		return c.Write(m.id(), "")
	}
	max := m.results[0].score
	cumulative := make([]float64, len(m.results))
	var total float64
	for i, h := range m.results {
		total += math.Exp(h.score - max)
		cumulative[i] = total
	}
	rng := rand.New(rand.NewSource(int64(m.id())))
	var b strings.Builder
	for i := 0; i < size; i++ {
		draw := rng.Float64() * total
		j := 0
		for j < len(cumulative)-1 && cumulative[j] < draw {
			j++
		}
		b.WriteString(m.nbestLine(m.results[j]))
	}
	return c.Write(m.id(), b.String())
}

func (m *Manager) OutputWordGraph(c output.Collector) error {
	if ok, err := m.ready(c); !ok {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "VERSION=1.0\nUTTERANCE=%d\n", m.id())
	link := 0
	for _, h := range m.arcs {
		if h.prev == nil {
			continue
		}
		fmt.Fprintf(&b, "J=%d\tS=%d\tE=%d\ta=%g\tw=%s\n", link, h.prev.id, h.id, h.transition, strings.Join(h.opt.target, " "))
		link++
	}
	return c.Write(m.id(), b.String())
}

func (m *Manager) OutputSearchGraph(c output.Collector) error {
	if ok, err := m.ready(c); !ok {
		return err
	}
	var b strings.Builder
	for _, h := range m.arcs {
		if h.prev == nil {
			fmt.Fprintf(&b, "%d hyp=%d stack=0\n", m.id(), h.id)
			continue
		}
		fmt.Fprintf(&b, "%d hyp=%d stack=%d back=%d score=%.3f transition=%.3f covered=%d-%d out=%s\n",
			m.id(), h.id, h.covered, h.prev.id, h.score, h.transition,
			h.opt.start, h.covered-1, strings.Join(h.opt.target, " "))
	}
	return c.Write(m.id(), b.String())
}

// OutputSearchGraphSLF writes the search graph in HTK standard lattice
// format. Node 0 is the empty hypothesis.
func (m *Manager) OutputSearchGraphSLF(c output.Collector) error {
	if ok, err := m.ready(c); !ok {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "VERSION=1.0\nUTTERANCE=%d\nN=%d\tL=%d\n", m.id(), len(m.arcs), util.Max(len(m.arcs)-1, 0))
	for _, h := range m.arcs {
		fmt.Fprintf(&b, "I=%d\n", h.id)
	}
	link := 0
	for _, h := range m.arcs {
		if h.prev == nil {
			continue
		}
		fmt.Fprintf(&b, "J=%d\tS=%d\tE=%d\tW=%s\ta=%g\n", link, h.prev.id, h.id, strings.Join(h.opt.target, "_"), h.transition)
		link++
	}
	return c.Write(m.id(), b.String())
}

// OutputSearchGraphAsHypergraph writes one vertex per hypothesis plus a
// goal vertex joining the terminal hypotheses.
func (m *Manager) OutputSearchGraphAsHypergraph(filename string, precision int) error {
	if !m.decoded {
		return search.ErrNotDecoded
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("hypergraph: %w", err)
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', precision, 64) }

	edges := len(m.arcs) - 1 + len(m.results)
	fmt.Fprintf(w, "# target ||| features ||| source-covered\n%d %d\n", len(m.arcs)+1, util.Max(edges, 0))
	for _, h := range m.arcs {
		fmt.Fprintln(w, 1)
		if h.prev == nil {
			fmt.Fprintln(w, "<s> ||| ||| 0")
			continue
		}
		fmt.Fprintf(w, "[%d] %s ||| Transition=%s ||| %d\n", h.prev.id, strings.Join(h.opt.target, " "), format(h.transition), len(h.opt.source))
	}
	fmt.Fprintln(w, len(m.results))
	for _, h := range m.results {
		fmt.Fprintf(w, "[%d] </s> ||| Total=%s ||| 0\n", h.id, format(h.score))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("hypergraph: %w", err)
	}
	return file.Close()
}

func (m *Manager) OutputDetailedTranslationReport(c output.Collector) error {
	if ok, err := m.ready(c); !ok {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "TRANSLATION %d DETAILS:\n", m.id())
	if best := m.best(); best != nil {
		for _, h := range best.path() {
			fmt.Fprintf(&b, "  SOURCE: [%d..%d] %s\n", h.opt.start, h.covered-1, strings.Join(h.opt.source, " "))
			fmt.Fprintf(&b, "    TRANSLATED AS: %s\n", strings.Join(h.opt.target, " "))
			if h.opt.unknown {
				b.WriteString("    UNKNOWN\n")
			}
		}
		fmt.Fprintf(&b, "SCORES (UNWEIGHTED): %s\nTOTAL: %g\n", m.scoreString(best), best.score)
	}
	return c.Write(m.id(), b.String())
}

func (m *Manager) OutputDetailedTreeFragmentsTranslationReport(c output.Collector) error {
	if c == nil {
		return nil
	}
	return fmt.Errorf("%w: tree fragments from %s", search.ErrUnsupportedOutput, m.Name())
}

func (m *Manager) OutputUnknowns(c output.Collector) error {
	if ok, err := m.ready(c); !ok {
		return err
	}
	var unknowns []string
	if best := m.best(); best != nil {
		for _, h := range best.path() {
			if h.opt.unknown {
				unknowns = append(unknowns, h.opt.source...)
			}
		}
	}
	return c.Write(m.id(), strings.Join(unknowns, " ")+"\n")
}

// OutputAlignment writes source-target word pairs. Words inside a phrase
// pair are aligned monotonically, the last word of the shorter side
// absorbing the rest.
func (m *Manager) OutputAlignment(c output.Collector) error {
	if ok, err := m.ready(c); !ok {
		return err
	}
	var pairs []string
	if best := m.best(); best != nil {
		target := 0
		for _, h := range best.path() {
			src, tgt := len(h.opt.source), len(h.opt.target)
			for j := 0; j < tgt; j++ {
				i := j
				if i >= src {
					i = src - 1
				}
				pairs = append(pairs, fmt.Sprintf("%d-%d", h.opt.start+i, target+j))
			}
			for i := tgt; i < src && tgt > 0; i++ {
				pairs = append(pairs, fmt.Sprintf("%d-%d", h.opt.start+i, target+tgt-1))
			}
			target += tgt
		}
	}
	return c.Write(m.id(), strings.Join(pairs, " ")+"\n")
}

func (m *Manager) CalcDecoderStatistics(sink output.StatisticsSink) error {
	if sink == nil {
		return nil
	}
	if !m.decoded {
		return search.ErrNotDecoded
	}
	stats := output.Statistics{
		TranslationID:        m.id(),
		SourceLength:         len(m.words),
		HypothesesCreated:    m.stats.Created,
		HypothesesRecombined: m.stats.Recombined,
		HypothesesPruned:     m.stats.Pruned,
		DecodeTime:           m.elapsed,
	}
	if best := m.best(); best != nil {
		stats.TargetLength = len(m.surface(best))
		stats.BestScore = best.score
	}
	return sink.Record(stats)
}
