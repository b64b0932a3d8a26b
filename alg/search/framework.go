package search

import (
	"container/heap"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
)

const (
	MAX_ROUNDS = 800
)

var AllOut bool = false

var ErrSearchExhausted = errors.New("search stopped at the round limit before every candidate was terminal")

type Problem interface{}

type Candidate interface {
	Score() float64
	Terminal() bool
	// Alignment is the input position the candidate has reached. Each round
	// only expands the candidates furthest behind; the rest wait.
	Alignment() int
	// Signature identifies the state relevant to future expansion.
	// Candidates with equal alignment and signature are recombined.
	Signature() string
}

type Interface interface {
	StartItem(p Problem) []Candidate
	Expand(c Candidate, p Problem) []Candidate
	Concurrent() bool
	Name() string
}

// Stats count what happened to candidates during one search.
type Stats struct {
	Rounds     int
	Created    int
	Recombined int
	Pruned     int
}

// Search runs an aligned beam search keeping at most B candidates per
// alignment, and returns the terminal candidates best first. At most
// maxRounds rounds are run (MAX_ROUNDS when maxRounds <= 0); running out of
// rounds with candidates still open is ErrSearchExhausted.
func Search(b Interface, problem Problem, B, maxRounds int) ([]Candidate, Stats, error) {
	if maxRounds <= 0 {
		maxRounds = MAX_ROUNDS
	}
	var stats Stats
	candidates := b.StartItem(problem)
	stats.Created = len(candidates)
	for {
		minAlignment := -1
		for _, c := range candidates {
			if !c.Terminal() && (minAlignment < 0 || c.Alignment() < minAlignment) {
				minAlignment = c.Alignment()
			}
		}
		if minAlignment < 0 {
			break
		}
		if stats.Rounds >= maxRounds {
			return nil, stats, fmt.Errorf("%w: %d rounds, %d open candidates at alignment %d", ErrSearchExhausted, stats.Rounds, len(candidates), minAlignment)
		}
		stats.Rounds++

		expansions := make([][]Candidate, len(candidates))
		expanded := make([]bool, len(candidates))
		var wg sync.WaitGroup
		for i, candidate := range candidates {
			if candidate.Terminal() || candidate.Alignment() > minAlignment {
				// idle until the rest catch up
				expansions[i] = []Candidate{candidate}
				continue
			}
			expanded[i] = true
			wg.Add(1)
			go func(c Candidate, j int) {
				defer wg.Done()
				expansions[j] = b.Expand(c, problem)
			}(candidate, i)
			if !b.Concurrent() {
				wg.Wait()
			}
		}
		wg.Wait()

		agenda := NewAgenda(B)
		for i, cs := range expansions {
			if expanded[i] {
				stats.Created += len(cs)
			}
			for _, c := range cs {
				agenda.Add(c, &stats)
			}
		}
		candidates = agenda.Candidates()
		if AllOut {
			log.Println("Round", stats.Rounds, "alignment", minAlignment, "agenda", len(candidates))
		}
	}

	var terminal []Candidate
	for _, c := range candidates {
		if c.Terminal() {
			terminal = append(terminal, c)
		}
	}
	sort.SliceStable(terminal, func(i, j int) bool {
		return terminal[i].Score() > terminal[j].Score()
	})
	return terminal, stats, nil
}

type agendaEntry struct {
	c     Candidate
	index int
}

// stack is a min-heap of candidates by score, indexed by signature.
type stack struct {
	entries []*agendaEntry
	bySig   map[string]*agendaEntry
}

func (s *stack) Len() int           { return len(s.entries) }
func (s *stack) Less(i, j int) bool { return s.entries[i].c.Score() < s.entries[j].c.Score() }

func (s *stack) Swap(i, j int) {
	s.entries[i], s.entries[j] = s.entries[j], s.entries[i]
	s.entries[i].index = i
	s.entries[j].index = j
}

func (s *stack) Push(x interface{}) {
	e := x.(*agendaEntry)
	e.index = len(s.entries)
	s.entries = append(s.entries, e)
	s.bySig[e.c.Signature()] = e
}

func (s *stack) Pop() interface{} {
	n := len(s.entries)
	e := s.entries[n-1]
	s.entries = s.entries[:n-1]
	delete(s.bySig, e.c.Signature())
	return e
}

var _ heap.Interface = &stack{}

// Agenda holds one bounded stack per alignment.
type Agenda struct {
	BeamSize int
	stacks   map[int]*stack
}

func NewAgenda(size int) *Agenda {
	if size < 1 {
		size = 1
	}
	return &Agenda{BeamSize: size, stacks: make(map[int]*stack)}
}

func (a *Agenda) Add(c Candidate, stats *Stats) {
	s, exists := a.stacks[c.Alignment()]
	if !exists {
		s = &stack{bySig: make(map[string]*agendaEntry)}
		a.stacks[c.Alignment()] = s
	}
	if e, exists := s.bySig[c.Signature()]; exists {
		stats.Recombined++
		if c.Score() > e.c.Score() {
			e.c = c
			heap.Fix(s, e.index)
		}
		return
	}
	if s.Len() < a.BeamSize {
		heap.Push(s, &agendaEntry{c: c})
		return
	}
	stats.Pruned++
	if s.entries[0].c.Score() >= c.Score() {
		return
	}
	heap.Pop(s)
	heap.Push(s, &agendaEntry{c: c})
}

func (a *Agenda) Len() int {
	var n int
	for _, s := range a.stacks {
		n += s.Len()
	}
	return n
}

// Candidates returns every candidate by increasing alignment, best first
// within an alignment.
func (a *Agenda) Candidates() []Candidate {
	alignments := make([]int, 0, len(a.stacks))
	for alignment := range a.stacks {
		alignments = append(alignments, alignment)
	}
	sort.Ints(alignments)
	retval := make([]Candidate, 0, a.Len())
	for _, alignment := range alignments {
		entries := a.stacks[alignment].entries
		start := len(retval)
		for _, e := range entries {
			retval = append(retval, e.c)
		}
		group := retval[start:]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Score() > group[j].Score()
		})
	}
	return retval
}
