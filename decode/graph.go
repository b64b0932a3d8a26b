// Package decode holds the decode graphs: ordered chains of dictionary
// lookups, each step responsible for scoring a subset of the features.
package decode

import (
	"fmt"
	"strings"

	"github.com/smarthi/MMT/ff"
)

type StepKind int

const (
	Translate StepKind = iota
	Generate
)

func (k StepKind) String() string {
	switch k {
	case Translate:
		return "T"
	case Generate:
		return "G"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// Step is one dictionary lookup of a graph. Prev indexes the previous step
// in the owning graph's Steps, -1 for the first step.
type Step struct {
	Kind       StepKind
	Dictionary ff.Dictionary
	Prev       int
	// OutputFactors accumulates the output factors of this step and all
	// steps before it.
	OutputFactors ff.FactorMask
	// Claimed are the features this step scores; Remaining are handed to
	// the next step of the chain.
	Claimed   []ff.FeatureFunction
	Remaining []ff.FeatureFunction
}

// Translation returns the step's dictionary for Translate steps.
func (s *Step) Translation() (ff.Translation, bool) {
	if s.Kind != Translate {
		return nil, false
	}
	t, ok := s.Dictionary.(ff.Translation)
	return t, ok
}

// Generation returns the step's dictionary for Generate steps.
func (s *Step) Generation() (ff.Generation, bool) {
	if s.Kind != Generate {
		return nil, false
	}
	g, ok := s.Dictionary.(ff.Generation)
	return g, ok
}

func (s *Step) String() string {
	ids := make([]string, len(s.Claimed))
	for i, f := range s.Claimed {
		ids[i] = f.Identity()
	}
	return fmt.Sprintf("%v %s [%s]", s.Kind, s.Dictionary.Identity(), strings.Join(ids, " "))
}

type Graph struct {
	Index int
	Steps []Step
	// Backoff is the longest span for which this graph is only used if no
	// earlier graph covers it; 0 always uses the graph.
	Backoff         int
	MaxChartSpan    int
	HasMaxChartSpan bool
}

func NewGraph(index int) *Graph {
	return &Graph{Index: index}
}

func NewChartGraph(index, maxChartSpan int) *Graph {
	return &Graph{Index: index, MaxChartSpan: maxChartSpan, HasMaxChartSpan: true}
}

// Add appends a step chained to prev (an index into g.Steps, or -1) and
// returns its index. The step claims every feature of remaining usable with
// its accumulated output factors.
func (g *Graph) Add(kind StepKind, dictionary ff.Dictionary, prev int, remaining []ff.FeatureFunction) int {
	step := Step{
		Kind:          kind,
		Dictionary:    dictionary,
		Prev:          prev,
		OutputFactors: dictionary.OutputFactors(),
	}
	if prev >= 0 {
		step.OutputFactors |= g.Steps[prev].OutputFactors
	}
	for _, f := range remaining {
		if f.Kind().IsDictionary() {
			continue
		}
		if f.IsUseable(step.OutputFactors) {
			step.Claimed = append(step.Claimed, f)
		} else {
			step.Remaining = append(step.Remaining, f)
		}
	}
	g.Steps = append(g.Steps, step)
	return len(g.Steps) - 1
}

// Claimed returns the features claimed by the graph's steps in chain order.
func (g *Graph) Claimed() []ff.FeatureFunction {
	var retval []ff.FeatureFunction
	for i := range g.Steps {
		retval = append(retval, g.Steps[i].Claimed...)
	}
	return retval
}

// Unclaimed returns the features left over after the last step.
func (g *Graph) Unclaimed() []ff.FeatureFunction {
	if len(g.Steps) == 0 {
		return nil
	}
	return g.Steps[len(g.Steps)-1].Remaining
}

func (g *Graph) Translations() []ff.Translation {
	var retval []ff.Translation
	for i := range g.Steps {
		if t, ok := g.Steps[i].Translation(); ok {
			retval = append(retval, t)
		}
	}
	return retval
}

func (g *Graph) String() string {
	strs := make([]string, len(g.Steps))
	for i := range g.Steps {
		strs[i] = g.Steps[i].String()
	}
	return fmt.Sprintf("graph %d (backoff %d): %s", g.Index, g.Backoff, strings.Join(strs, " -> "))
}
