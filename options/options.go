// Package options holds the typed decoder options read from a configuration
// at startup. An *Options is immutable once Init returns; every task holds a
// pointer to the same value.
package options

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/smarthi/MMT/util"
	"github.com/smarthi/MMT/util/conf"
)

const (
	DEFAULT_NON_TERMINAL   = "X"
	DEFAULT_STACK_SIZE     = 100
	DEFAULT_HG_EXTENSION   = "hg"
	DEFAULT_MAX_CHART_SPAN = 20
)

type SearchOptions struct {
	Algorithm SearchAlgorithm
	StackSize int `validate:"min=1"`
}

type SyntaxOptions struct {
	S2TParsing         S2TParsingAlgorithm `validate:"gte=0,lte=1"`
	DefaultNonTerminal string              `validate:"required"`
	UnknownLHSFile     string
}

type OutputOptions struct {
	NBestFile                   string
	NBestSize                   int `validate:"gte=0"`
	NBestDistinct               bool
	WordGraph                   string
	SearchGraph                 string
	SearchGraphSLF              string
	SearchGraphHG               string
	HypergraphExtension         string `validate:"required"`
	LatticeSamplesFile          string
	LatticeSamplesSize          int `validate:"gte=0"`
	DetailedTranslationReport   string
	DetailedTreeFragmentsReport string
	UnknownsFile                string
	AlignmentOutputFile         string
}

type Options struct {
	Search          SearchOptions
	Syntax          SyntaxOptions
	Output          OutputOptions
	Threads         int `validate:"min=1"`
	Verbose         int `validate:"gte=0"`
	FactorDelimiter string
	NoCache         bool
	ShowWeights     bool
	IgnoreFF        map[string]bool
}

var validate = validator.New()

// Default returns the options of an empty configuration.
func Default() *Options {
	return &Options{
		Search: SearchOptions{Algorithm: Normal, StackSize: DEFAULT_STACK_SIZE},
		Syntax: SyntaxOptions{
			S2TParsing:         RecursiveCYKPlus,
			DefaultNonTerminal: DEFAULT_NON_TERMINAL,
		},
		Output:          OutputOptions{HypergraphExtension: DEFAULT_HG_EXTENSION},
		Threads:         1,
		Verbose:         1,
		FactorDelimiter: "|",
		IgnoreFF:        make(map[string]bool),
	}
}

// Init reads every option group from params.
func Init(params *conf.Parameters) (*Options, error) {
	o := Default()
	var err error

	if o.Search.Algorithm, err = ParseSearchAlgorithm(params.String("search-algorithm", "0")); err != nil {
		return nil, err
	}
	if o.Search.StackSize, err = params.Int("stack", DEFAULT_STACK_SIZE); err != nil {
		return nil, err
	}
	if o.Syntax.S2TParsing, err = ParseS2TParsingAlgorithm(params.String("s2t-parsing-algorithm", "0")); err != nil {
		return nil, err
	}
	o.Syntax.DefaultNonTerminal = params.String("non-terminals", DEFAULT_NON_TERMINAL)
	o.Syntax.UnknownLHSFile = params.String("unknown-lhs", "")

	if o.Threads, err = ParseThreads(params); err != nil {
		return nil, err
	}
	if o.Verbose, err = params.Int("verbose", 1); err != nil {
		return nil, err
	}
	o.FactorDelimiter = params.String("factor-delimiter", "|")
	if o.NoCache, err = params.Bool("no-cache", false); err != nil {
		return nil, err
	}
	o.ShowWeights = params.Has("show-weights")
	if values, ok := params.Get("ignore-ff"); ok {
		for _, v := range values {
			for _, name := range util.TokenizeOn(strings.ReplaceAll(v, " ", ","), ",") {
				o.IgnoreFF[name] = true
			}
		}
	}
	if err = o.Output.init(params); err != nil {
		return nil, err
	}
	if err = o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *OutputOptions) init(params *conf.Parameters) error {
	if values, ok := params.Get("n-best-list"); ok && len(values) > 0 {
		fields := util.Tokenize(strings.Join(values, " "))
		if len(fields) < 2 {
			return fmt.Errorf("n-best-list: expected <file> <size> [distinct], got %q", strings.Join(values, " "))
		}
		size, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("n-best-list: bad size %q", fields[1])
		}
		o.NBestFile, o.NBestSize = fields[0], size
		o.NBestDistinct = len(fields) > 2 && fields[2] == "distinct"
	}
	if values, ok := params.Get("lattice-samples"); ok && len(values) > 0 {
		fields := util.Tokenize(strings.Join(values, " "))
		if len(fields) != 2 {
			return fmt.Errorf("lattice-samples: expected <file> <size>, got %q", strings.Join(values, " "))
		}
		size, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("lattice-samples: bad size %q", fields[1])
		}
		o.LatticeSamplesFile, o.LatticeSamplesSize = fields[0], size
	}
	o.WordGraph = params.String("output-word-graph", "")
	o.SearchGraph = params.String("output-search-graph", "")
	o.SearchGraphSLF = params.String("output-search-graph-slf", "")
	if values, ok := params.Get("output-search-graph-hypergraph"); ok && len(values) > 0 {
		fields := util.Tokenize(strings.Join(values, " "))
		o.SearchGraphHG = fields[0]
		if len(fields) > 1 {
			o.HypergraphExtension = fields[1]
		}
	}
	o.DetailedTranslationReport = params.String("translation-details", "")
	o.DetailedTreeFragmentsReport = params.String("tree-translation-details", "")
	o.UnknownsFile = params.String("output-unknowns", "")
	o.AlignmentOutputFile = params.String("alignment-output-file", "")
	return nil
}

// ParseThreads reads the threads group: a positive count or "all".
func ParseThreads(params *conf.Parameters) (int, error) {
	value := params.String("threads", "1")
	if value == "all" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("threads: expected a number or \"all\", got %q", value)
	}
	if n < 1 {
		return 0, fmt.Errorf("threads: specify at least one thread")
	}
	return n, nil
}

func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// IsSyntax reports whether the configured search is a syntax/chart strategy.
func (o *Options) IsSyntax() bool {
	return o.Search.Algorithm.IsSyntax()
}
