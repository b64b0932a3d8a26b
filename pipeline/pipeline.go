// Package pipeline turns a decoder configuration into a loaded set of
// features, decode graphs and weights. A *Pipeline is built once at
// startup and shared by every translation task.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/smarthi/MMT/alg/featurevector"
	"github.com/smarthi/MMT/decode"
	"github.com/smarthi/MMT/ff"
	"github.com/smarthi/MMT/options"
	"github.com/smarthi/MMT/util"
	"github.com/smarthi/MMT/util/conf"
)

const RULE_TABLE = "RuleTable"

var (
	ErrNameOverwrite    = errors.New("feature-name-overwrite")
	ErrFeatureOverwrite = errors.New("feature-overwrite")
	ErrUnknownLHS       = errors.New("unknown-lhs")
	ErrSparseWeight     = errors.New("only one weight per sparse feature allowed")
)

// UnknownLHSEntry is a label, with its probability, under which syntax
// decoders insert unknown words.
type UnknownLHSEntry struct {
	Label string
	Prob  float64
}

type Pipeline struct {
	opts     *options.Options
	params   *conf.Parameters
	registry *ff.Registry
	graphs   []*decode.Graph
	weights  *featurevector.Weights

	unknownLHS      []UnknownLHSEntry
	requiresSorting bool
}

// Load runs the startup sequence. A nil factory means ff.DefaultFactory.
// No pipeline is returned unless every step succeeds.
func Load(params *conf.Parameters, factory *ff.Factory) (*Pipeline, error) {
	start := time.Now()
	opts, err := options.Init(params)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		opts:     opts,
		params:   params,
		registry: ff.NewRegistry(factory),
	}
	p.registry.Log = opts.Verbose > 1
	decode.Log = opts.Verbose > 0

	if opts.IsSyntax() {
		if err := p.loadNonTerminals(); err != nil {
			return nil, err
		}
	}

	initial := featurevector.NewVector()
	if err := p.initializeFeatures(initial); err != nil {
		return nil, err
	}
	p.weights = featurevector.NewWeights(initial)

	if !opts.ShowWeights {
		if err := p.loadFeatureFunctions(); err != nil {
			return nil, err
		}
	}
	if err := p.loadDecodeGraphs(); err != nil {
		return nil, err
	}
	if err := p.CheckWeights(); err != nil {
		return nil, err
	}
	if err := p.loadWeightFile(); err != nil {
		return nil, err
	}
	if err := p.loadSparseWeights(); err != nil {
		return nil, err
	}
	if opts.Verbose > 0 {
		log.Println("Pipeline loaded:", p.registry.Len(), "features,", len(p.graphs), "decode graphs in", time.Since(start))
	}
	return p, nil
}

func (p *Pipeline) loadNonTerminals() error {
	filename := p.opts.Syntax.UnknownLHSFile
	if len(filename) == 0 {
		p.unknownLHS = []UnknownLHSEntry{{p.opts.Syntax.DefaultNonTerminal, 0.0}}
		return nil
	}
	c, err := conf.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownLHS, err)
	}
	for _, line := range c.Values {
		toks := util.Tokenize(line)
		if len(toks) != 2 {
			return fmt.Errorf("%w: incorrect format: %q", ErrUnknownLHS, line)
		}
		probs, err := util.ScanFloats(toks[1:])
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrUnknownLHS, line, err)
		}
		p.unknownLHS = append(p.unknownLHS, UnknownLHSEntry{toks[0], probs[0]})
	}
	return nil
}

// nameOverrides reads feature-name-overwrite. Syntax strategies also map
// the memory and scope-3 phrase tables to rule tables.
func (p *Pipeline) nameOverrides() (map[string]string, error) {
	retval := make(map[string]string)
	if values, ok := p.params.Get("feature-name-overwrite"); ok && len(values) > 0 {
		if len(values) != 1 {
			return nil, fmt.Errorf("%w: only provide 1 line", ErrNameOverwrite)
		}
		toks := util.Tokenize(values[0])
		if len(toks)%2 != 0 {
			return nil, fmt.Errorf("%w: format must be [old-name new-name]*, got %q", ErrNameOverwrite, values[0])
		}
		for i := 0; i < len(toks); i += 2 {
			retval[toks[i]] = toks[i+1]
		}
	}
	switch p.opts.Search.Algorithm {
	case options.SyntaxS2T, options.SyntaxT2S, options.SyntaxT2S_SCFG, options.SyntaxF2S:
		retval["PhraseDictionaryMemory"] = RULE_TABLE
		retval["PhraseDictionaryScope3"] = RULE_TABLE
	}
	return retval, nil
}

func (p *Pipeline) initializeFeatures(initial *featurevector.Vector) error {
	overrides, err := p.nameOverrides()
	if err != nil {
		return err
	}
	lines, _ := p.params.Get("feature")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		toks := util.Tokenize(line)
		kind := toks[0]
		if renamed, exists := overrides[kind]; exists {
			toks[0] = renamed
			kind = renamed
			line = strings.Join(toks, " ")
		}
		feature, err := p.registry.Construct(kind, line)
		if err != nil {
			return err
		}
		if weights, ok := p.params.Weights(feature.Identity()); ok {
			if err := initial.AssignScores(feature.Identity(), feature.NumScores(), weights); err != nil {
				return fmt.Errorf("weight %w", err)
			}
		}
	}
	if err := p.noCache(); err != nil {
		return err
	}
	return p.overrideFeatures()
}

func (p *Pipeline) noCache() error {
	if !p.opts.NoCache {
		return nil
	}
	for _, d := range p.registry.Dictionaries() {
		if err := d.SetParameter("cache-size", "0"); err != nil {
			return fmt.Errorf("no-cache: %s: %w", d.Identity(), err)
		}
	}
	return nil
}

func (p *Pipeline) overrideFeatures() error {
	lines, _ := p.params.Get("feature-overwrite")
	for _, line := range lines {
		toks := util.Tokenize(line)
		if len(toks) <= 1 {
			return fmt.Errorf("%w: incorrect format: %q", ErrFeatureOverwrite, line)
		}
		feature, exists := p.registry.Find(toks[0])
		if !exists {
			return fmt.Errorf("%w: %w: %s", ErrFeatureOverwrite, ff.ErrUnknownFeature, toks[0])
		}
		for _, kv := range toks[1:] {
			key, value, found := strings.Cut(kv, "=")
			if !found || len(key) == 0 || strings.Contains(value, "=") {
				return fmt.Errorf("%w: incorrect parameter %q", ErrFeatureOverwrite, kv)
			}
			if p.opts.Verbose > 0 {
				log.Println("Override", feature.Identity(), key+"="+value)
			}
			if err := feature.SetParameter(key, value); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrFeatureOverwrite, feature.Identity(), err)
			}
		}
	}
	return nil
}

// loadFeatureFunctions loads every feature except translation
// dictionaries, then the translation dictionaries.
func (p *Pipeline) loadFeatureFunctions() error {
	load := func(f ff.FeatureFunction) error {
		if p.opts.Verbose > 0 {
			log.Println("Loading", f.Identity())
		}
		if err := f.Load(p.opts); err != nil {
			return fmt.Errorf("loading %s: %w", f.Identity(), err)
		}
		return nil
	}
	for _, f := range p.registry.Features() {
		if f.RequiresSortingAfterSourceContext() {
			p.requiresSorting = true
		}
		if f.Kind() == ff.TranslationDictionary {
			continue
		}
		if err := load(f); err != nil {
			return err
		}
	}
	for _, t := range p.registry.TranslationDictionaries() {
		if err := load(t); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) intGroup(name string) ([]int, error) {
	values, _ := p.params.Get(name)
	var toks []string
	for _, v := range values {
		toks = append(toks, util.Tokenize(v)...)
	}
	ints, err := util.ScanInts(toks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ints, nil
}

func (p *Pipeline) loadDecodeGraphs() error {
	mapping, _ := p.params.Get("mapping")
	backoff, err := p.intGroup("decoding-graph-backoff")
	if err != nil {
		return err
	}
	spans, err := p.intGroup("max-chart-span")
	if err != nil {
		return err
	}
	p.graphs, err = decode.Build(mapping, backoff, spans, p.registry, p.opts.IsSyntax())
	return err
}

func (p *Pipeline) loadWeightFile() error {
	filename := p.params.String("weight-file", "")
	if len(filename) == 0 {
		return nil
	}
	entries, err := featurevector.ReadWeightFileNamed(filename)
	if err != nil {
		return fmt.Errorf("unable to load weights from %s: %w", filename, err)
	}
	extra := featurevector.NewVector()
	var unmatched []string
	for name, values := range entries {
		f, registered := p.registry.Find(name)
		switch {
		case registered:
			if err := extra.AssignScores(name, f.NumScores(), values); err != nil {
				return fmt.Errorf("%s: %w", filename, err)
			}
		case len(values) == 1:
			extra.AssignSparse(name, values[0])
		default:
			// dense weights need a feature
			unmatched = append(unmatched, name)
		}
	}
	if len(unmatched) > 0 {
		sort.Strings(unmatched)
		return fmt.Errorf("%s: %w", filename, &UnmatchedWeightsError{unmatched})
	}
	return p.weights.Update(func(v *featurevector.Vector) error {
		v.PlusEquals(extra)
		return nil
	})
}

// loadSparseWeights assigns configured weights whose name is not a feature
// identity. They overrule the weight file.
func (p *Pipeline) loadSparseWeights() error {
	return p.weights.Update(func(v *featurevector.Vector) error {
		for _, name := range p.params.WeightNames() {
			if p.registry.Has(name) {
				continue
			}
			weights, _ := p.params.Weights(name)
			if len(weights) != 1 {
				return fmt.Errorf("%w: %s", ErrSparseWeight, name)
			}
			v.AssignSparse(name, weights[0])
		}
		return nil
	})
}

func (p *Pipeline) Options() *options.Options     { return p.opts }
func (p *Pipeline) Registry() *ff.Registry        { return p.registry }
func (p *Pipeline) Graphs() []*decode.Graph       { return p.graphs }
func (p *Pipeline) ThreadCount() int              { return p.opts.Threads }
func (p *Pipeline) UnknownLHS() []UnknownLHSEntry { return p.unknownLHS }

// RequireSortingAfterSourceContext reports whether any loaded feature
// needs its options re-sorted once the source context is known.
func (p *Pipeline) RequireSortingAfterSourceContext() bool {
	return p.requiresSorting
}

// InitializeForInput prepares every feature not ignored by the options.
func (p *Pipeline) InitializeForInput(task ff.Task) error {
	for _, f := range p.registry.Features() {
		if f.IgnoredFor(p.opts) {
			continue
		}
		start := time.Now()
		if err := f.InitializeForInput(task); err != nil {
			return fmt.Errorf("%s: initializing for input %d: %w", f.Identity(), task.TranslationID(), err)
		}
		if p.opts.Verbose > 2 {
			log.Printf("Line %d: InitializeForInput(%s) = %v", task.TranslationID(), f.Identity(), time.Since(start))
		}
	}
	return nil
}

func (p *Pipeline) CleanUpAfterSentenceProcessing(task ff.Task) {
	for _, f := range p.registry.Features() {
		if !f.IgnoredFor(p.opts) {
			f.CleanUpAfterSentenceProcessing(task)
		}
	}
}
