package ff

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	nlp "github.com/smarthi/MMT/nlp/types"
	"github.com/smarthi/MMT/options"
	"github.com/smarthi/MMT/util"
)

const (
	BOS = "<s>"
	EOS = "</s>"
	UNK = "<unk>"

	DEFAULT_LM_ORDER = 3
)

// ContextScorer is implemented by stateful features whose score of a
// target phrase depends on the target words preceding it.
type ContextScorer interface {
	// Order bounds how much history the scorer looks at; hypotheses whose
	// last Order()-1 words agree can be recombined.
	Order() int
	ScoreContext(history, target []string) []float64
	ScoreEnd(history []string) []float64
}

// Distortion penalizes reordering jumps. Monotone search never jumps, so
// every phrase scores zero.
type Distortion struct {
	Base
}

func NewDistortion(kindName string) FeatureFunction {
	return &Distortion{NewBase(kindName, Stateful, 1)}
}

func (f *Distortion) ScorePhrase(_, _ []string) []float64 {
	return []float64{0}
}

type ngramEntry struct {
	prob, backoff float64
}

// LanguageModel is a backoff n-gram model read from an ARPA file. Scores
// are natural-log probabilities.
type LanguageModel struct {
	Base
	path      string
	factor    int
	order     int
	delimiter string
	ngrams    map[string]ngramEntry
	unkProb   float64
}

var _ ContextScorer = &LanguageModel{}

func NewLanguageModel(kindName string) FeatureFunction {
	return &LanguageModel{
		Base:    NewBase(kindName, Stateful, 1),
		order:   DEFAULT_LM_ORDER,
		ngrams:  make(map[string]ngramEntry),
		unkProb: LOG_FLOOR,
	}
}

func (lm *LanguageModel) SetParameter(key, value string) error {
	switch key {
	case "path":
		lm.path = value
	case "factor", "order":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || (key == "order" && n == 0) {
			return fmt.Errorf("%w: %s=%s", ErrBadParameter, key, value)
		}
		if key == "factor" {
			lm.factor = n
		} else {
			lm.order = n
		}
	case "lazyken", "load":
		// KenLM loading hints
	default:
		return lm.Base.SetParameter(key, value)
	}
	return nil
}

// IsUseable requires the factor the model is trained on.
func (lm *LanguageModel) IsUseable(mask FactorMask) bool {
	return mask.Contains(1 << uint(lm.factor))
}

func (lm *LanguageModel) Order() int {
	return lm.order
}

func (lm *LanguageModel) Load(opts *options.Options) error {
	if opts != nil {
		lm.delimiter = opts.FactorDelimiter
	}
	if len(lm.path) == 0 {
		return fmt.Errorf("%s: %w: path is required", lm.identity, ErrBadParameter)
	}
	file, err := os.Open(lm.path)
	if err != nil {
		return fmt.Errorf("%s: %w", lm.identity, err)
	}
	defer file.Close()
	return lm.ReadARPA(file)
}

// ReadARPA loads the \n-grams: sections of an ARPA file. The model order
// becomes the highest order present.
func (lm *LanguageModel) ReadARPA(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	var n, maxOrder int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case len(line) == 0, line == "\\data\\", strings.HasPrefix(line, "ngram "):
			continue
		case line == "\\end\\":
			n = 0
			continue
		case strings.HasPrefix(line, "\\") && strings.HasSuffix(line, "-grams:"):
			order, err := strconv.Atoi(line[1:strings.Index(line, "-")])
			if err != nil {
				return fmt.Errorf("%s: bad section %q", lm.path, line)
			}
			n = order
			maxOrder = util.Max(maxOrder, n)
			continue
		}
		if n == 0 {
			continue
		}
		toks := util.Tokenize(line)
		if len(toks) < n+1 {
			return fmt.Errorf("%s: bad %d-gram line %q", lm.path, n, line)
		}
		entry := ngramEntry{}
		prob, err := strconv.ParseFloat(toks[0], 64)
		if err != nil {
			return fmt.Errorf("%s: bad probability in %q", lm.path, line)
		}
		entry.prob = prob * math.Ln10
		if len(toks) > n+1 {
			backoff, err := strconv.ParseFloat(toks[n+1], 64)
			if err != nil {
				return fmt.Errorf("%s: bad backoff in %q", lm.path, line)
			}
			entry.backoff = backoff * math.Ln10
		}
		lm.Add(toks[1:n+1], entry.prob, entry.backoff)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if maxOrder > 0 {
		lm.order = maxOrder
	}
	return nil
}

// Add inserts an n-gram with its natural-log probability and backoff.
func (lm *LanguageModel) Add(words []string, prob, backoff float64) {
	key := strings.Join(words, " ")
	lm.ngrams[key] = ngramEntry{prob, backoff}
	if key == UNK {
		lm.unkProb = prob
	}
}

// wordProb returns log p(word | context) with standard backoff.
func (lm *LanguageModel) wordProb(context []string, word string) float64 {
	if len(context) >= lm.order {
		context = context[len(context)-lm.order+1:]
	}
	var backoff float64
	for {
		ngram := append(append([]string(nil), context...), word)
		if entry, exists := lm.ngrams[strings.Join(ngram, " ")]; exists {
			return backoff + entry.prob
		}
		if len(context) == 0 {
			return backoff + lm.unkProb
		}
		if entry, exists := lm.ngrams[strings.Join(context, " ")]; exists {
			backoff += entry.backoff
		}
		context = context[1:]
	}
}

func (lm *LanguageModel) project(words []string) []string {
	projected := make([]string, len(words))
	for i, w := range words {
		projected[i] = nlp.Token(w).Factor(lm.factor, lm.delimiter)
	}
	return projected
}

// ScoreContext scores target following history. An empty history means
// the start of the sentence.
func (lm *LanguageModel) ScoreContext(history, target []string) []float64 {
	context := append([]string{BOS}, lm.project(history)...)
	var total float64
	for _, word := range lm.project(target) {
		total += lm.wordProb(context, word)
		context = append(context, word)
	}
	return []float64{total}
}

func (lm *LanguageModel) ScoreEnd(history []string) []float64 {
	context := append([]string{BOS}, lm.project(history)...)
	return []float64{lm.wordProb(context, EOS)}
}
