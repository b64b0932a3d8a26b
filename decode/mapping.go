package decode

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/smarthi/MMT/ff"
	"github.com/smarthi/MMT/util"
)

const (
	DEFAULT_MAPPING        = "0 T 0"
	DEFAULT_MAX_CHART_SPAN = 20
)

var (
	ErrMalformedMapping  = errors.New("malformed mapping")
	ErrNoSuchDictionary  = errors.New("no such dictionary")
	ErrUnknownFeature    = errors.New("unknown feature")
	ErrUnknownDecodeStep = errors.New("unknown decode step")
)

var Log bool

// Grammar is the surface form of the mapping entries.
type Grammar int

const (
	// Legacy entries address dictionaries by load order: "0 T 0" or "T 0".
	Legacy Grammar = iota
	// Named entries address dictionaries by identity: "0 TM1".
	Named
)

func (g Grammar) String() string {
	if g == Named {
		return "named"
	}
	return "legacy"
}

// Resolver gives access to the constructed features. *ff.Registry
// implements it.
type Resolver interface {
	Scorers() []ff.FeatureFunction
	TranslationDictionaries() []ff.Translation
	GenerationDictionaries() []ff.Generation
	Find(identity string) (ff.FeatureFunction, bool)
}

// DetectGrammar classifies the mapping by its first entry.
func DetectGrammar(first string) (Grammar, error) {
	toks := util.Tokenize(first)
	switch len(toks) {
	case 3:
		return Legacy, nil
	case 2:
		if toks[0] == "T" || toks[0] == "G" {
			return Legacy, nil
		}
		return Named, nil
	}
	return Legacy, fmt.Errorf("%w: %q", ErrMalformedMapping, first)
}

type entry struct {
	graph int
	kind  StepKind
	// legacy
	index int
	// named
	name string
}

func parseIndex(s, line string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad index %q in %q", ErrMalformedMapping, s, line)
	}
	return n, nil
}

func parseKind(s, line string) (StepKind, error) {
	switch s {
	case "T":
		return Translate, nil
	case "G":
		return Generate, nil
	}
	return Translate, fmt.Errorf("%w: %q in %q", ErrUnknownDecodeStep, s, line)
}

func parseLegacy(line string) (entry, error) {
	var (
		e   entry
		err error
	)
	toks := util.Tokenize(line)
	switch len(toks) {
	case 2:
		toks = append([]string{"0"}, toks...)
	case 3:
	default:
		return e, fmt.Errorf("%w: %q", ErrMalformedMapping, line)
	}
	if e.graph, err = parseIndex(toks[0], line); err != nil {
		return e, err
	}
	if e.kind, err = parseKind(toks[1], line); err != nil {
		return e, err
	}
	if e.index, err = parseIndex(toks[2], line); err != nil {
		return e, err
	}
	return e, nil
}

func parseNamed(line string) (entry, error) {
	var (
		e   entry
		err error
	)
	toks := util.Tokenize(line)
	if len(toks) != 2 {
		return e, fmt.Errorf("%w: %q", ErrMalformedMapping, line)
	}
	if e.graph, err = parseIndex(toks[0], line); err != nil {
		return e, err
	}
	e.name = toks[1]
	return e, nil
}

func resolveLegacy(e entry, r Resolver, line string) (ff.Dictionary, error) {
	switch e.kind {
	case Translate:
		pts := r.TranslationDictionaries()
		if e.index >= len(pts) {
			return nil, fmt.Errorf("%w: no phrase dictionary with index %d available (%q)", ErrNoSuchDictionary, e.index, line)
		}
		return pts[e.index], nil
	case Generate:
		gens := r.GenerationDictionaries()
		if e.index >= len(gens) {
			return nil, fmt.Errorf("%w: no generation dictionary with index %d available (%q)", ErrNoSuchDictionary, e.index, line)
		}
		return gens[e.index], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDecodeStep, line)
}

// resolveNamed finds the dictionary by identity and derives the step kind
// from the feature's kind tag.
func resolveNamed(e *entry, r Resolver, line string) (ff.Dictionary, error) {
	f, exists := r.Find(e.name)
	if !exists {
		return nil, fmt.Errorf("%w %q in mapping %q", ErrUnknownFeature, e.name, line)
	}
	switch f.Kind() {
	case ff.TranslationDictionary:
		e.kind = Translate
	case ff.GenerationDictionary:
		e.kind = Generate
	default:
		return nil, fmt.Errorf("%w: %s is a %v feature (%q)", ErrUnknownDecodeStep, e.name, f.Kind(), line)
	}
	d, ok := f.(ff.Dictionary)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a dictionary (%q)", ErrUnknownDecodeStep, e.name, line)
	}
	return d, nil
}

// Build compiles the mapping entries into decode graphs. An empty mapping
// means DEFAULT_MAPPING. backoff[i] applies to graph i (missing: 0);
// maxChartSpans[i] is only used when syntax is set (missing:
// DEFAULT_MAX_CHART_SPAN).
func Build(mapping []string, backoff, maxChartSpans []int, r Resolver, syntax bool) ([]*Graph, error) {
	var lines []string
	for _, line := range mapping {
		if len(strings.TrimSpace(line)) > 0 {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		lines = []string{DEFAULT_MAPPING}
	}
	grammar, err := DetectGrammar(lines[0])
	if err != nil {
		return nil, err
	}
	if Log {
		log.Println("Mapping grammar:", grammar)
	}

	all := r.Scorers()
	var (
		graphs    []*Graph
		remaining = all
		prev      = -1
		prevGraph = 0
	)
	for _, line := range lines {
		var (
			e          entry
			dictionary ff.Dictionary
		)
		if grammar == Legacy {
			e, err = parseLegacy(line)
		} else {
			e, err = parseNamed(line)
		}
		if err != nil {
			return nil, err
		}
		if e.graph != prevGraph && e.graph != prevGraph+1 {
			return nil, fmt.Errorf("%w: graph index %d follows %d in %q", ErrMalformedMapping, e.graph, prevGraph, line)
		}
		if e.graph > prevGraph {
			prev = -1
			remaining = all
		}
		if grammar == Legacy {
			dictionary, err = resolveLegacy(e, r, line)
		} else {
			dictionary, err = resolveNamed(&e, r, line)
		}
		if err != nil {
			return nil, err
		}

		if e.graph > len(graphs) {
			return nil, fmt.Errorf("%w: graph %d declared before graph %d in %q", ErrMalformedMapping, e.graph, len(graphs), line)
		}
		if len(graphs) == e.graph {
			if syntax {
				span := DEFAULT_MAX_CHART_SPAN
				if e.graph < len(maxChartSpans) {
					span = maxChartSpans[e.graph]
				}
				if Log {
					log.Println("max-chart-span:", span)
				}
				graphs = append(graphs, NewChartGraph(len(graphs), span))
			} else {
				graphs = append(graphs, NewGraph(len(graphs)))
			}
		}
		graph := graphs[e.graph]
		prev = graph.Add(e.kind, dictionary, prev, remaining)
		remaining = graph.Steps[prev].Remaining
		prevGraph = e.graph
	}

	for i, graph := range graphs {
		if i < len(backoff) {
			graph.Backoff = backoff[i]
		}
		if unclaimed := graph.Unclaimed(); len(unclaimed) > 0 {
			ids := make([]string, len(unclaimed))
			for j, f := range unclaimed {
				ids[j] = f.Identity()
			}
			log.Printf("Warning: no step of decode graph %d can score %s", graph.Index, strings.Join(ids, " "))
		}
		if Log {
			log.Println(graph)
		}
	}
	return graphs, nil
}
