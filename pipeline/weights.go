package pipeline

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/smarthi/MMT/alg/featurevector"
	"github.com/smarthi/MMT/ff"
)

// UnmatchedWeightsError lists every configured weight that names neither a
// feature nor a sparse sub-feature of one.
type UnmatchedWeightsError struct {
	Names []string
}

func (e *UnmatchedWeightsError) Error() string {
	return "the following weights have no feature function, maybe incorrectly spelt weights: " + strings.Join(e.Names, ",")
}

// CheckWeights matches configured weight names against the registry. A
// feature without a weight is only logged; a weight without a feature is
// an error.
func (p *Pipeline) CheckWeights() error {
	remaining := make(map[string]bool)
	for _, name := range p.params.WeightNames() {
		remaining[name] = true
	}
	for _, identity := range p.registry.Identities() {
		if remaining[identity] {
			delete(remaining, identity)
			continue
		}
		log.Println("Can't find weights for feature function", identity)
	}
	var unmatched []string
	for name := range remaining {
		prefix, _, _ := strings.Cut(name, "_")
		if p.registry.Has(prefix) {
			continue
		}
		unmatched = append(unmatched, name)
	}
	if len(unmatched) > 0 {
		sort.Strings(unmatched)
		return &UnmatchedWeightsError{unmatched}
	}
	return nil
}

// Weights returns the current weight snapshot; it never changes once
// returned.
func (p *Pipeline) Weights() *featurevector.Vector {
	return p.weights.Snapshot()
}

func (p *Pipeline) feature(identity string) (ff.FeatureFunction, error) {
	f, exists := p.registry.Find(identity)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ff.ErrUnknownFeature, identity)
	}
	return f, nil
}

// SetWeight sets the weight of a single-score feature.
func (p *Pipeline) SetWeight(identity string, weight float64) error {
	if _, err := p.feature(identity); err != nil {
		return err
	}
	return p.weights.SetWeight(identity, weight)
}

// SetWeights replaces the weights of a feature; one weight per score
// component is required.
func (p *Pipeline) SetWeights(identity string, weights []float64) error {
	f, err := p.feature(identity)
	if err != nil {
		return err
	}
	return p.weights.SetWeights(identity, f.NumScores(), weights)
}

// ReloadWeight replaces the weight of a single-score feature while tasks
// may be running; tasks already decoding keep their snapshot.
func (p *Pipeline) ReloadWeight(identity string, weight float64) error {
	if err := p.SetWeight(identity, weight); err != nil {
		return err
	}
	if p.opts.Verbose > 0 {
		log.Printf("Reloaded weight %s= %g", identity, weight)
	}
	return nil
}

// ReloadBleuScoreFeatureParameter sets the weight of every BLEU feature.
func (p *Pipeline) ReloadBleuScoreFeatureParameter(weight float64) error {
	for _, f := range p.registry.Features() {
		if f.KindName() != ff.BLEU_SCORE_FEATURE {
			continue
		}
		if err := p.ReloadWeight(f.Identity(), weight); err != nil {
			return err
		}
	}
	return nil
}
