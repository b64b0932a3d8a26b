package ff

import "sort"

// Constructor returns a fresh feature of the given kind with default
// parameters; the registry applies the configured arguments.
type Constructor func(kindName string) FeatureFunction

type Factory struct {
	constructors map[string]Constructor
}

func NewFactory() *Factory {
	return &Factory{make(map[string]Constructor)}
}

// DefaultFactory knows every built-in feature kind.
func DefaultFactory() *Factory {
	f := NewFactory()
	f.Register("WordPenalty", NewWordPenalty)
	f.Register("PhrasePenalty", NewPhrasePenalty)
	f.Register("UnknownWordPenalty", NewUnknownWordPenalty)
	f.Register("BleuScoreFeature", NewBleuScoreFeature)
	f.Register("TargetWordInsertionFeature", NewTargetWordInsertion)
	f.Register("Distortion", NewDistortion)
	f.Register("KENLM", NewLanguageModel)
	f.Register("PhraseDictionaryMemory", NewPhraseDictionary)
	f.Register("PhraseDictionaryScope3", NewPhraseDictionary)
	f.Register("RuleTable", NewPhraseDictionary)
	f.Register("Generation", NewGenerationTable)
	return f
}

func (f *Factory) Register(kindName string, c Constructor) {
	f.constructors[kindName] = c
}

func (f *Factory) Lookup(kindName string) (Constructor, bool) {
	c, exists := f.constructors[kindName]
	return c, exists
}

func (f *Factory) Kinds() []string {
	kinds := make([]string, 0, len(f.constructors))
	for k := range f.constructors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
