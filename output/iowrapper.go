package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/smarthi/MMT/options"
)

// Statistics summarize the search of one sentence.
type Statistics struct {
	TranslationID        int
	SourceLength         int
	TargetLength         int
	HypothesesCreated    int
	HypothesesRecombined int
	HypothesesPruned     int
	BestScore            float64
	DecodeTime           time.Duration
}

// StatisticsSink accumulates per-sentence statistics.
type StatisticsSink interface {
	Record(s Statistics) error
}

// IOWrapper bundles the collectors of every output stage. A nil collector
// disables its stage.
type IOWrapper struct {
	SingleBest          Collector
	WordGraph           Collector
	SearchGraph         Collector
	SearchGraphSLF      Collector
	NBest               Collector
	LatticeSamples      Collector
	DetailedTranslation Collector
	DetailTreeFragments Collector
	Unknowns            Collector
	Alignment           Collector
	Statistics          StatisticsSink

	HypergraphDir       string
	HypergraphExtension string

	closers []io.Closer
}

// NewIOWrapper writes the best translations to best and opens a file
// collector for every output configured in opts.
func NewIOWrapper(opts *options.Options, best io.Writer, firstID int) (*IOWrapper, error) {
	w := &IOWrapper{HypergraphExtension: opts.Output.HypergraphExtension}
	if best != nil {
		w.SingleBest = NewOrderedCollector(best, firstID)
	}
	files := []struct {
		path string
		dst  *Collector
	}{
		{opts.Output.WordGraph, &w.WordGraph},
		{opts.Output.SearchGraph, &w.SearchGraph},
		{opts.Output.SearchGraphSLF, &w.SearchGraphSLF},
		{opts.Output.NBestFile, &w.NBest},
		{opts.Output.LatticeSamplesFile, &w.LatticeSamples},
		{opts.Output.DetailedTranslationReport, &w.DetailedTranslation},
		{opts.Output.DetailedTreeFragmentsReport, &w.DetailTreeFragments},
		{opts.Output.UnknownsFile, &w.Unknowns},
		{opts.Output.AlignmentOutputFile, &w.Alignment},
	}
	for _, f := range files {
		if len(f.path) == 0 {
			continue
		}
		c, err := w.openCollector(f.path, firstID)
		if err != nil {
			w.Close()
			return nil, err
		}
		*f.dst = c
	}
	if len(opts.Output.SearchGraphHG) > 0 {
		w.HypergraphDir = opts.Output.SearchGraphHG
		if err := os.MkdirAll(w.HypergraphDir, 0o755); err != nil {
			w.Close()
			return nil, fmt.Errorf("hypergraph directory: %w", err)
		}
	}
	return w, nil
}

func (w *IOWrapper) openCollector(path string, firstID int) (Collector, error) {
	if path == "-" {
		return NewOrderedCollector(os.Stdout, firstID), nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w.closers = append(w.closers, file)
	return NewOrderedCollector(file, firstID), nil
}

// HypergraphOutputFileName is where the hypergraph of a sentence is
// written: <dir>/<id>.<extension>.
func (w *IOWrapper) HypergraphOutputFileName(translationID int) string {
	return filepath.Join(w.HypergraphDir, fmt.Sprintf("%d.%s", translationID, w.HypergraphExtension))
}

// Close flushes every ordered collector and closes the files opened by
// NewIOWrapper.
func (w *IOWrapper) Close() error {
	var first error
	for _, c := range []Collector{
		w.SingleBest, w.WordGraph, w.SearchGraph, w.SearchGraphSLF, w.NBest, w.LatticeSamples,
		w.DetailedTranslation, w.DetailTreeFragments, w.Unknowns, w.Alignment,
	} {
		if oc, ok := c.(*OrderedCollector); ok {
			if err := oc.Flush(); err != nil && first == nil {
				first = err
			}
		}
	}
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	w.closers = nil
	return first
}
