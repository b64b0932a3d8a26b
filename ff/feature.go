// Package ff defines the scoring components of the decoder: the
// FeatureFunction contract, the registry that owns every constructed
// feature, and the built-in features and dictionaries.
package ff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smarthi/MMT/options"
	"github.com/smarthi/MMT/util"
)

var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrBadParameter     = errors.New("bad parameter value")
)

// Kind tags every feature with what it is, so that decode graph assembly
// never has to inspect concrete types.
type Kind int

const (
	Stateless Kind = iota
	Stateful
	TranslationDictionary
	GenerationDictionary
)

func (k Kind) String() string {
	switch k {
	case Stateless:
		return "stateless"
	case Stateful:
		return "stateful"
	case TranslationDictionary:
		return "translation"
	case GenerationDictionary:
		return "generation"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) IsDictionary() bool {
	return k == TranslationDictionary || k == GenerationDictionary
}

// FactorMask is a set of factor indices (bit i = factor i).
type FactorMask uint64

func (m FactorMask) Contains(other FactorMask) bool {
	return m&other == other
}

func (m FactorMask) String() string {
	var strs []string
	for i := 0; i < 64; i++ {
		if m&(1<<uint(i)) != 0 {
			strs = append(strs, strconv.Itoa(i))
		}
	}
	return strings.Join(strs, ",")
}

// ParseFactors reads "0,1,2".
func ParseFactors(s string) (FactorMask, error) {
	var m FactorMask
	for _, piece := range util.TokenizeOn(s, ",") {
		i, err := strconv.Atoi(piece)
		if err != nil || i < 0 || i > 63 {
			return 0, fmt.Errorf("%w: factor list %q", ErrBadParameter, s)
		}
		m |= 1 << uint(i)
	}
	return m, nil
}

// Task is the view of a translation task offered to features.
type Task interface {
	TranslationID() int
	ContextWindow() []string
	Options() *options.Options
}

type FeatureFunction interface {
	Identity() string
	KindName() string
	Kind() Kind
	NumScores() int
	Tuneable() bool
	InputFactors() FactorMask
	OutputFactors() FactorMask

	Load(opts *options.Options) error
	SetParameter(key, value string) error
	RequiresSortingAfterSourceContext() bool
	IgnoredFor(opts *options.Options) bool
	// IsUseable reports whether the feature can score hypotheses carrying
	// the given output factors.
	IsUseable(mask FactorMask) bool

	InitializeForInput(task Task) error
	CleanUpAfterSentenceProcessing(task Task)

	ffBase() *Base
}

// PhraseScorer is implemented by features that score a phrase pair alone.
type PhraseScorer interface {
	ScorePhrase(source, target []string) []float64
}

// UnknownScorer scores a source word that no dictionary covers.
type UnknownScorer interface {
	ScoreUnknown(word string) []float64
}

// SparseScorer emits dynamically named sub-features "<identity>_<suffix>".
type SparseScorer interface {
	ScoreSparse(source, target []string) map[string]float64
}

// Base carries the parameters shared by every feature. Features embed it
// and override SetParameter for their own keys, delegating the rest.
type Base struct {
	identity  string
	kindName  string
	kind      Kind
	numScores int
	tuneable  bool
	input     FactorMask
	output    FactorMask
}

func NewBase(kindName string, kind Kind, numScores int) Base {
	return Base{
		kindName:  kindName,
		kind:      kind,
		numScores: numScores,
		tuneable:  true,
		input:     1,
		output:    1,
	}
}

func (b *Base) ffBase() *Base               { return b }
func (b *Base) Identity() string            { return b.identity }
func (b *Base) KindName() string            { return b.kindName }
func (b *Base) Kind() Kind                  { return b.kind }
func (b *Base) NumScores() int              { return b.numScores }
func (b *Base) Tuneable() bool              { return b.tuneable }
func (b *Base) InputFactors() FactorMask    { return b.input }
func (b *Base) OutputFactors() FactorMask   { return b.output }
func (b *Base) IsUseable(_ FactorMask) bool { return true }

func (b *Base) Load(_ *options.Options) error { return nil }

func (b *Base) RequiresSortingAfterSourceContext() bool { return false }

func (b *Base) IgnoredFor(opts *options.Options) bool {
	return opts != nil && opts.IgnoreFF[b.identity]
}

func (b *Base) InitializeForInput(_ Task) error { return nil }

func (b *Base) CleanUpAfterSentenceProcessing(_ Task) {}

func (b *Base) SetParameter(key, value string) error {
	var err error
	switch key {
	case "num-features":
		n, convErr := strconv.Atoi(value)
		if convErr != nil || n < 0 {
			return fmt.Errorf("%w: num-features=%s", ErrBadParameter, value)
		}
		b.numScores = n
	case "tuneable":
		b.tuneable, err = util.ScanBool(value)
	case "input-factor":
		b.input, err = ParseFactors(value)
	case "output-factor":
		b.output, err = ParseFactors(value)
	case "verbosity", "filterable":
		// accepted for compatibility, no effect
	default:
		return fmt.Errorf("%w %s for %s", ErrUnknownParameter, key, b.kindName)
	}
	if err != nil {
		return fmt.Errorf("%s=%s: %w", key, value, err)
	}
	return nil
}

func (b *Base) String() string {
	return fmt.Sprintf("%s (%s, %d scores)", b.identity, b.kindName, b.numScores)
}
