package options

import (
	"fmt"
	"strconv"
	"strings"
)

type SearchAlgorithm int

// Numbering follows the decoder's historical configuration values.
const (
	Normal           SearchAlgorithm = 0
	CubePruning      SearchAlgorithm = 1
	ChartDecoding    SearchAlgorithm = 3
	NormalBatch      SearchAlgorithm = 4
	ChartIncremental SearchAlgorithm = 5
	SyntaxS2T        SearchAlgorithm = 6
	SyntaxT2S        SearchAlgorithm = 7
	SyntaxT2S_SCFG   SearchAlgorithm = 8
	SyntaxF2S        SearchAlgorithm = 9
)

var searchAlgorithmNames = map[SearchAlgorithm]string{
	Normal:           "normal",
	CubePruning:      "cube-pruning",
	ChartDecoding:    "chart",
	NormalBatch:      "normal-batch",
	ChartIncremental: "chart-incremental",
	SyntaxS2T:        "s2t",
	SyntaxT2S:        "t2s",
	SyntaxT2S_SCFG:   "t2s-scfg",
	SyntaxF2S:        "f2s",
}

func (a SearchAlgorithm) String() string {
	if name, ok := searchAlgorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("SearchAlgorithm(%d)", int(a))
}

func (a SearchAlgorithm) Known() bool {
	_, ok := searchAlgorithmNames[a]
	return ok
}

func (a SearchAlgorithm) IsSyntax() bool {
	switch a {
	case ChartDecoding, ChartIncremental, SyntaxS2T, SyntaxT2S, SyntaxT2S_SCFG, SyntaxF2S:
		return true
	}
	return false
}

// ParseSearchAlgorithm accepts the numeric value or the name.
func ParseSearchAlgorithm(s string) (SearchAlgorithm, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		a := SearchAlgorithm(n)
		if !a.Known() {
			return a, fmt.Errorf("unknown search algorithm %d", n)
		}
		return a, nil
	}
	for a, name := range searchAlgorithmNames {
		if name == s {
			return a, nil
		}
	}
	return Normal, fmt.Errorf("unknown search algorithm %q", s)
}

type S2TParsingAlgorithm int

const (
	RecursiveCYKPlus S2TParsingAlgorithm = 0
	Scope3           S2TParsingAlgorithm = 1
)

func (a S2TParsingAlgorithm) String() string {
	switch a {
	case RecursiveCYKPlus:
		return "recursive-cyk+"
	case Scope3:
		return "scope3"
	}
	return fmt.Sprintf("S2TParsingAlgorithm(%d)", int(a))
}

func ParseS2TParsingAlgorithm(s string) (S2TParsingAlgorithm, error) {
	switch strings.TrimSpace(s) {
	case "0", "recursive-cyk+":
		return RecursiveCYKPlus, nil
	case "1", "scope3":
		return Scope3, nil
	}
	return RecursiveCYKPlus, fmt.Errorf("unknown s2t parsing algorithm %q", s)
}
