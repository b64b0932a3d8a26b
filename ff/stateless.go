package ff

import "github.com/smarthi/MMT/options"

// WordPenalty scores minus the number of target words.
type WordPenalty struct {
	Base
}

func NewWordPenalty(kindName string) FeatureFunction {
	return &WordPenalty{NewBase(kindName, Stateless, 1)}
}

func (f *WordPenalty) ScorePhrase(_, target []string) []float64 {
	return []float64{-float64(len(target))}
}

func (f *WordPenalty) ScoreUnknown(_ string) []float64 {
	return []float64{-1}
}

// PhrasePenalty scores one per phrase pair used.
type PhrasePenalty struct {
	Base
}

func NewPhrasePenalty(kindName string) FeatureFunction {
	return &PhrasePenalty{NewBase(kindName, Stateless, 1)}
}

func (f *PhrasePenalty) ScorePhrase(_, _ []string) []float64 {
	return []float64{1}
}

func (f *PhrasePenalty) ScoreUnknown(_ string) []float64 {
	return []float64{1}
}

// UnknownWordPenalty fires once for every source word passed through
// untranslated.
type UnknownWordPenalty struct {
	Base
}

func NewUnknownWordPenalty(kindName string) FeatureFunction {
	f := &UnknownWordPenalty{NewBase(kindName, Stateless, 1)}
	f.tuneable = false
	return f
}

func (f *UnknownWordPenalty) ScorePhrase(_, _ []string) []float64 {
	return []float64{0}
}

func (f *UnknownWordPenalty) ScoreUnknown(_ string) []float64 {
	return []float64{1}
}

// BleuScoreFeature is the hook for online tuning; its weight is the one
// adjusted at runtime through the reload path. It contributes no score of
// its own here.
type BleuScoreFeature struct {
	Base
}

const BLEU_SCORE_FEATURE = "BleuScoreFeature"

func NewBleuScoreFeature(kindName string) FeatureFunction {
	f := &BleuScoreFeature{NewBase(kindName, Stateful, 1)}
	f.tuneable = false
	return f
}

// TargetWordInsertionFeature emits one sparse feature "<identity>_<word>"
// per target word. With a vocabulary file configured, words outside it are
// reported as "OTHER".
type TargetWordInsertionFeature struct {
	Base
	path  string
	vocab map[string]bool
}

func NewTargetWordInsertion(kindName string) FeatureFunction {
	return &TargetWordInsertionFeature{Base: NewBase(kindName, Stateless, 0)}
}

func (f *TargetWordInsertionFeature) SetParameter(key, value string) error {
	if key == "path" {
		f.path = value
		return nil
	}
	return f.Base.SetParameter(key, value)
}

func (f *TargetWordInsertionFeature) Load(_ *options.Options) error {
	if len(f.path) == 0 {
		return nil
	}
	words, err := readWordList(f.path)
	if err != nil {
		return err
	}
	f.vocab = make(map[string]bool, len(words))
	for _, w := range words {
		f.vocab[w] = true
	}
	return nil
}

func (f *TargetWordInsertionFeature) ScoreSparse(_, target []string) map[string]float64 {
	scores := make(map[string]float64, len(target))
	for _, word := range target {
		if f.vocab != nil && !f.vocab[word] {
			word = "OTHER"
		}
		scores[f.identity+"_"+word]++
	}
	return scores
}
