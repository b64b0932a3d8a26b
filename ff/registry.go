package ff

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/smarthi/MMT/util"
)

var (
	ErrUnknownFeature    = errors.New("unknown feature")
	ErrDuplicateIdentity = errors.New("duplicate feature identity")
	ErrMalformedLine     = errors.New("malformed feature line")
)

// Registry owns every feature constructed for one pipeline, in construction
// order. It is built single-threaded at startup and only read afterwards.
type Registry struct {
	factory  *Factory
	features []FeatureFunction
	ids      *util.EnumSet
	counters map[string]int
	Log      bool
}

func NewRegistry(factory *Factory) *Registry {
	if factory == nil {
		factory = DefaultFactory()
	}
	return &Registry{
		factory:  factory,
		ids:      util.NewEnumSet(16),
		counters: make(map[string]int),
	}
}

// Construct builds a feature from a line "<kind> key=value ...". kindName
// is the kind to construct; it replaces the first token of line.
func (r *Registry) Construct(kindName, line string) (FeatureFunction, error) {
	toks := util.Tokenize(line)
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}
	constructor, exists := r.factory.Lookup(kindName)
	if !exists {
		return nil, fmt.Errorf("%w %q in line %q", ErrUnknownFeature, kindName, line)
	}
	feature := constructor(kindName)
	var name string
	for _, tok := range toks[1:] {
		key, value, found := strings.Cut(tok, "=")
		if !found || len(key) == 0 {
			return nil, fmt.Errorf("%w: expected key=value, got %q in %q", ErrMalformedLine, tok, line)
		}
		if key == "name" {
			name = value
			continue
		}
		if err := feature.SetParameter(key, value); err != nil {
			return nil, fmt.Errorf("feature %s: %w", kindName, err)
		}
	}
	if err := r.Register(feature, name); err != nil {
		return nil, err
	}
	if r.Log {
		log.Println("Constructed", feature.Identity(), "from", line)
	}
	return feature, nil
}

// Register adds a feature built outside the factory. An empty name yields
// the default identity "<kind><n>", n counting features of that kind.
func (r *Registry) Register(feature FeatureFunction, name string) error {
	base := feature.ffBase()
	index := r.counters[base.kindName]
	r.counters[base.kindName] = index + 1
	if len(name) == 0 {
		name = fmt.Sprintf("%s%d", base.kindName, index)
	}
	if r.ids.Contains(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, name)
	}
	base.identity = name
	r.ids.Add(name)
	r.features = append(r.features, feature)
	return nil
}

// Features returns every feature in construction order.
func (r *Registry) Features() []FeatureFunction {
	retval := make([]FeatureFunction, len(r.features))
	copy(retval, r.features)
	return retval
}

// Scorers returns every feature that is not a dictionary, in construction
// order; these are the features decode steps take responsibility for.
func (r *Registry) Scorers() []FeatureFunction {
	var retval []FeatureFunction
	for _, f := range r.features {
		if !f.Kind().IsDictionary() {
			retval = append(retval, f)
		}
	}
	return retval
}

func (r *Registry) Len() int {
	return len(r.features)
}

func (r *Registry) Find(identity string) (FeatureFunction, bool) {
	index, exists := r.ids.IndexOf(identity)
	if !exists {
		return nil, false
	}
	return r.features[index], true
}

func (r *Registry) Has(identity string) bool {
	return r.ids.Contains(identity)
}

func (r *Registry) Identities() []string {
	return r.ids.Values()
}

// TranslationDictionaries returns the translation dictionaries in load
// order; legacy mappings address them by this position.
func (r *Registry) TranslationDictionaries() []Translation {
	var retval []Translation
	for _, f := range r.features {
		if t, ok := f.(Translation); ok && f.Kind() == TranslationDictionary {
			retval = append(retval, t)
		}
	}
	return retval
}

func (r *Registry) GenerationDictionaries() []Generation {
	var retval []Generation
	for _, f := range r.features {
		if g, ok := f.(Generation); ok && f.Kind() == GenerationDictionary {
			retval = append(retval, g)
		}
	}
	return retval
}

// Dictionaries returns every dictionary feature of either kind.
func (r *Registry) Dictionaries() []Dictionary {
	var retval []Dictionary
	for _, f := range r.features {
		if d, ok := f.(Dictionary); ok && f.Kind().IsDictionary() {
			retval = append(retval, d)
		}
	}
	return retval
}
