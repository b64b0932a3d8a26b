package search

import (
	"errors"
	"fmt"

	"github.com/smarthi/MMT/alg/featurevector"
	"github.com/smarthi/MMT/decode"
	"github.com/smarthi/MMT/ff"
	nlp "github.com/smarthi/MMT/nlp/types"
	"github.com/smarthi/MMT/output"
)

// PRECISION is the number of decimals written to hypergraph files.
const PRECISION = 3

var (
	ErrUnhandledAlgorithm = errors.New("unhandled search algorithm")
	ErrUnsupportedOutput  = errors.New("output not supported by this search algorithm")
	ErrNotDecoded         = errors.New("output requested before decoding")
)

// Request is what a manager needs from the task it decodes for.
type Request interface {
	ff.Task
	Source() *nlp.Sentence
	Graphs() []*decode.Graph
	// Weights is a snapshot; it does not change while the request is
	// decoded.
	Weights() *featurevector.Vector
}

// Manager runs the search for one sentence and answers the output queries
// about its result. Output methods do nothing when passed a nil collector.
type Manager interface {
	Decode() error

	OutputBest(c output.Collector) error
	OutputWordGraph(c output.Collector) error
	OutputSearchGraph(c output.Collector) error
	OutputSearchGraphSLF(c output.Collector) error
	OutputSearchGraphAsHypergraph(filename string, precision int) error
	OutputNBest(c output.Collector) error
	OutputLatticeSamples(c output.Collector) error
	OutputDetailedTranslationReport(c output.Collector) error
	OutputDetailedTreeFragmentsTranslationReport(c output.Collector) error
	OutputUnknowns(c output.Collector) error
	OutputAlignment(c output.Collector) error
	CalcDecoderStatistics(sink output.StatisticsSink) error
}

// Backends construct the manager of each strategy. A nil backend means the
// strategy is not available in this build.
type Backends struct {
	PhraseBased      func(s PhraseBased, req Request) Manager
	ForestToString   func(s ForestToString, req Request) Manager
	StringToTree     func(s StringToTree, req Request) Manager
	TreeToStringSCFG func(s TreeToStringSCFG, req Request) Manager
	IncrementalChart func(s IncrementalChart, req Request) Manager
	Chart            func(s Chart, req Request) Manager
}

// NewManager builds the manager for s.
func NewManager(s Strategy, req Request, backends Backends) (Manager, error) {
	missing := func() error {
		return fmt.Errorf("%w: no backend for %v", ErrUnhandledAlgorithm, s)
	}
	switch s := s.(type) {
	case PhraseBased:
		if backends.PhraseBased == nil {
			return nil, missing()
		}
		return backends.PhraseBased(s, req), nil
	case ForestToString:
		if backends.ForestToString == nil {
			return nil, missing()
		}
		return backends.ForestToString(s, req), nil
	case StringToTree:
		if backends.StringToTree == nil {
			return nil, missing()
		}
		return backends.StringToTree(s, req), nil
	case TreeToStringSCFG:
		if backends.TreeToStringSCFG == nil {
			return nil, missing()
		}
		return backends.TreeToStringSCFG(s, req), nil
	case IncrementalChart:
		if backends.IncrementalChart == nil {
			return nil, missing()
		}
		return backends.IncrementalChart(s, req), nil
	case Chart:
		if backends.Chart == nil {
			return nil, missing()
		}
		return backends.Chart(s, req), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnhandledAlgorithm, s)
}
