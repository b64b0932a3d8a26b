package ff

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/smarthi/MMT/options"
	"github.com/smarthi/MMT/util"
	"github.com/smarthi/MMT/util/conf"
)

const (
	DEFAULT_CACHE_SIZE        = 10000
	DEFAULT_TABLE_LIMIT       = 20
	DEFAULT_MAX_PHRASE_LENGTH = 20
	FIELD_SEPARATOR           = "|||"
	LOG_FLOOR                 = -100.0
)

// Dictionary is a feature backed by a lookup table.
type Dictionary interface {
	FeatureFunction
	CacheSize() int
}

type TargetPhrase struct {
	Words  []string
	Scores []float64
}

// Translation dictionaries map a source phrase to target phrases.
type Translation interface {
	Dictionary
	Lookup(source []string) []TargetPhrase
	MaxPhraseLength() int
}

// Generation dictionaries map one factor of a target word to another.
type Generation interface {
	Dictionary
	Generate(word string) []TargetPhrase
}

// transformScore turns a probability into a log score.
func transformScore(p float64) float64 {
	if p <= 0 {
		return LOG_FLOOR
	}
	return math.Max(math.Log(p), LOG_FLOOR)
}

type dictionaryParams struct {
	path      string
	cacheSize int
}

func (d *dictionaryParams) set(key, value string) (bool, error) {
	switch key {
	case "path":
		d.path = value
	case "cache-size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return true, fmt.Errorf("%w: cache-size=%s", ErrBadParameter, value)
		}
		d.cacheSize = n
	default:
		return false, nil
	}
	return true, nil
}

// PhraseDictionary is an in-memory phrase table read from
// "source ||| target ||| p1 p2 ..." lines.
type PhraseDictionary struct {
	Base
	dictionaryParams
	tableLimit      int
	maxPhraseLength int
	table           map[string][]TargetPhrase
}

var (
	_ Translation = &PhraseDictionary{}
	_ Generation  = &GenerationTable{}
)

func NewPhraseDictionary(kindName string) FeatureFunction {
	return &PhraseDictionary{
		Base:             NewBase(kindName, TranslationDictionary, 1),
		dictionaryParams: dictionaryParams{cacheSize: DEFAULT_CACHE_SIZE},
		tableLimit:       DEFAULT_TABLE_LIMIT,
		maxPhraseLength:  DEFAULT_MAX_PHRASE_LENGTH,
		table:            make(map[string][]TargetPhrase),
	}
}

func (d *PhraseDictionary) SetParameter(key, value string) error {
	if handled, err := d.dictionaryParams.set(key, value); handled {
		return err
	}
	switch key {
	case "table-limit", "max-phrase-length":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s=%s", ErrBadParameter, key, value)
		}
		if key == "table-limit" {
			d.tableLimit = n
		} else {
			d.maxPhraseLength = n
		}
		return nil
	}
	return d.Base.SetParameter(key, value)
}

func (d *PhraseDictionary) CacheSize() int       { return d.cacheSize }
func (d *PhraseDictionary) MaxPhraseLength() int { return d.maxPhraseLength }
func (d *PhraseDictionary) TableLimit() int      { return d.tableLimit }

// Load reads the table from path; without a path the table stays empty
// and entries can be added programmatically.
func (d *PhraseDictionary) Load(_ *options.Options) error {
	if len(d.path) == 0 {
		return nil
	}
	c, err := conf.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("%s: %w", d.identity, err)
	}
	for i, line := range c.Values {
		fields := strings.Split(line, FIELD_SEPARATOR)
		if len(fields) < 3 {
			return fmt.Errorf("%s: %s line %d: expected source ||| target ||| scores", d.identity, d.path, i+1)
		}
		probs, err := util.ScanFloats(util.Tokenize(fields[2]))
		if err != nil {
			return fmt.Errorf("%s: %s line %d: %w", d.identity, d.path, i+1, err)
		}
		if err := d.Add(util.Tokenize(fields[0]), util.Tokenize(fields[1]), probs); err != nil {
			return fmt.Errorf("%s line %d: %w", d.path, i+1, err)
		}
	}
	d.prune()
	return nil
}

// Add inserts a phrase pair with probabilities; they are stored as log
// scores.
func (d *PhraseDictionary) Add(source, target []string, probs []float64) error {
	if len(probs) != d.numScores {
		return fmt.Errorf("%s: expected %d scores, got %d", d.identity, d.numScores, len(probs))
	}
	if len(source) == 0 || len(source) > d.maxPhraseLength {
		return nil
	}
	scores := make([]float64, len(probs))
	for i, p := range probs {
		scores[i] = transformScore(p)
	}
	key := strings.Join(source, " ")
	d.table[key] = append(d.table[key], TargetPhrase{target, scores})
	return nil
}

// prune keeps the table-limit best options per source phrase, ranked by
// the sum of their scores. A limit of 0 keeps everything.
func (d *PhraseDictionary) prune() {
	for key, phrases := range d.table {
		sort.SliceStable(phrases, func(i, j int) bool {
			return sum(phrases[i].Scores) > sum(phrases[j].Scores)
		})
		if d.tableLimit > 0 && len(phrases) > d.tableLimit {
			d.table[key] = phrases[:d.tableLimit]
		}
	}
}

func (d *PhraseDictionary) Lookup(source []string) []TargetPhrase {
	if len(source) > d.maxPhraseLength {
		return nil
	}
	return d.table[strings.Join(source, " ")]
}

func (d *PhraseDictionary) Len() int {
	return len(d.table)
}

// GenerationTable is read from "<in> <out> p1 p2 ..." lines, where
// <in> is the input factor of a target word and <out> the generated factor.
type GenerationTable struct {
	Base
	dictionaryParams
	table map[string][]TargetPhrase
}

func NewGenerationTable(kindName string) FeatureFunction {
	d := &GenerationTable{
		Base:             NewBase(kindName, GenerationDictionary, 1),
		dictionaryParams: dictionaryParams{cacheSize: DEFAULT_CACHE_SIZE},
		table:            make(map[string][]TargetPhrase),
	}
	d.output = 2
	return d
}

func (d *GenerationTable) SetParameter(key, value string) error {
	if handled, err := d.dictionaryParams.set(key, value); handled {
		return err
	}
	return d.Base.SetParameter(key, value)
}

func (d *GenerationTable) CacheSize() int { return d.cacheSize }

func (d *GenerationTable) Load(_ *options.Options) error {
	if len(d.path) == 0 {
		return nil
	}
	c, err := conf.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("%s: %w", d.identity, err)
	}
	for i, line := range c.Values {
		toks := util.Tokenize(line)
		if len(toks) < 2 {
			return fmt.Errorf("%s: %s line %d: expected <in> <out> scores", d.identity, d.path, i+1)
		}
		probs, err := util.ScanFloats(toks[2:])
		if err != nil {
			return fmt.Errorf("%s: %s line %d: %w", d.identity, d.path, i+1, err)
		}
		if err := d.Add(toks[0], toks[1], probs); err != nil {
			return fmt.Errorf("%s line %d: %w", d.path, i+1, err)
		}
	}
	return nil
}

func (d *GenerationTable) Add(in, out string, probs []float64) error {
	if len(probs) != d.numScores {
		return fmt.Errorf("%s: expected %d scores, got %d", d.identity, d.numScores, len(probs))
	}
	scores := make([]float64, len(probs))
	for i, p := range probs {
		scores[i] = transformScore(p)
	}
	d.table[in] = append(d.table[in], TargetPhrase{[]string{out}, scores})
	return nil
}

func (d *GenerationTable) Generate(word string) []TargetPhrase {
	return d.table[word]
}

func sum(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

func readWordList(path string) ([]string, error) {
	c, err := conf.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var words []string
	for _, line := range c.Values {
		words = append(words, util.Tokenize(line)...)
	}
	return words, nil
}
