package search

import (
	"fmt"

	"github.com/smarthi/MMT/options"
)

// Strategy is the closed set of search strategies. Only this package
// defines variants.
type Strategy interface {
	strategy()
	String() string
}

// PhraseBased covers every non-syntax algorithm.
type PhraseBased struct {
	Algorithm options.SearchAlgorithm
}

// ForestToString is STSG based decoding of a parse forest, or of a single
// tree when Tree is set.
type ForestToString struct {
	Tree bool
}

type StringToTree struct {
	Parser options.S2TParsingAlgorithm
}

type TreeToStringSCFG struct{}

type IncrementalChart struct{}

type Chart struct{}

func (PhraseBased) strategy()      {}
func (ForestToString) strategy()   {}
func (StringToTree) strategy()     {}
func (TreeToStringSCFG) strategy() {}
func (IncrementalChart) strategy() {}
func (Chart) strategy()            {}

func (s PhraseBased) String() string { return "phrase-based (" + s.Algorithm.String() + ")" }

func (s ForestToString) String() string {
	if s.Tree {
		return "tree-to-string"
	}
	return "forest-to-string"
}

func (s StringToTree) String() string {
	if s.Parser == options.Scope3 {
		return "string-to-tree (scope-3)"
	}
	return "string-to-tree (recursive CYK+)"
}

func (TreeToStringSCFG) String() string { return "tree-to-string (SCFG)" }
func (IncrementalChart) String() string { return "incremental chart" }
func (Chart) String() string            { return "chart" }

// SelectStrategy maps the configured algorithm to its strategy. There is no
// default: an algorithm or parser outside the known set is an error.
func SelectStrategy(opts *options.Options) (Strategy, error) {
	algo := opts.Search.Algorithm
	switch algo {
	case options.Normal, options.CubePruning, options.NormalBatch:
		return PhraseBased{algo}, nil
	case options.SyntaxF2S, options.SyntaxT2S:
		return ForestToString{Tree: algo == options.SyntaxT2S}, nil
	case options.SyntaxS2T:
		switch parser := opts.Syntax.S2TParsing; parser {
		case options.RecursiveCYKPlus, options.Scope3:
			return StringToTree{parser}, nil
		default:
			return nil, fmt.Errorf("%w: S2T parsing algorithm %d", ErrUnhandledAlgorithm, int(parser))
		}
	case options.SyntaxT2S_SCFG:
		return TreeToStringSCFG{}, nil
	case options.ChartIncremental:
		return IncrementalChart{}, nil
	case options.ChartDecoding:
		return Chart{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnhandledAlgorithm, int(algo))
}
