package conf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/smarthi/MMT/util"
)

// WEIGHT_SECTION holds "<feature>= v1 v2 ..." lines rather than plain values.
const WEIGHT_SECTION = "weight"

var ErrNoSection = errors.New("value outside of a [section]")

// Parameters is a decoder configuration: named groups of string values plus
// the weights declared in the [weight] group.
type Parameters struct {
	groups  map[string][]string
	weights map[string][]float64
}

func NewParameters() *Parameters {
	return &Parameters{
		groups:  make(map[string][]string),
		weights: make(map[string][]float64),
	}
}

// Get returns the values of a group; ok is false when the group is absent.
func (p *Parameters) Get(name string) ([]string, bool) {
	values, ok := p.groups[name]
	return values, ok
}

// Has reports whether the group is present with at least one value, or as a
// bare switch.
func (p *Parameters) Has(name string) bool {
	_, ok := p.groups[name]
	return ok
}

func (p *Parameters) Set(name string, values ...string) {
	p.groups[name] = append([]string(nil), values...)
}

func (p *Parameters) Append(name string, values ...string) {
	p.groups[name] = append(p.groups[name], values...)
}

// String returns the first value of a group, or def.
func (p *Parameters) String(name, def string) string {
	values, ok := p.groups[name]
	if !ok || len(values) == 0 {
		return def
	}
	return strings.TrimSpace(values[0])
}

func (p *Parameters) Int(name string, def int) (int, error) {
	values, ok := p.groups[name]
	if !ok || len(values) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return def, fmt.Errorf("parameter %s: expected integer, got %q", name, values[0])
	}
	return n, nil
}

func (p *Parameters) Float(name string, def float64) (float64, error) {
	values, ok := p.groups[name]
	if !ok || len(values) == 0 {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(values[0]), 64)
	if err != nil {
		return def, fmt.Errorf("parameter %s: expected number, got %q", name, values[0])
	}
	return f, nil
}

// Bool treats a present group without values as true.
func (p *Parameters) Bool(name string, def bool) (bool, error) {
	values, ok := p.groups[name]
	if !ok {
		return def, nil
	}
	if len(values) == 0 {
		return true, nil
	}
	b, err := util.ScanBool(values[0])
	if err != nil {
		return def, fmt.Errorf("parameter %s: %w", name, err)
	}
	return b, nil
}

// SetWeights declares the weights of a dense or sparse feature.
func (p *Parameters) SetWeights(name string, weights []float64) {
	p.weights[name] = append([]float64(nil), weights...)
}

// WeightNames returns every name declared in the weight group, sorted.
func (p *Parameters) WeightNames() []string {
	names := make([]string, 0, len(p.weights))
	for name := range p.weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Parameters) Weights(name string) ([]float64, bool) {
	w, ok := p.weights[name]
	return w, ok
}

// AllWeights returns a copy of the declared weights.
func (p *Parameters) AllWeights() map[string][]float64 {
	retval := make(map[string][]float64, len(p.weights))
	for k, v := range p.weights {
		retval[k] = append([]float64(nil), v...)
	}
	return retval
}

// Override applies a command line override of the form "group=v1 v2 ...".
// A bare "group" sets a switch.
func (p *Parameters) Override(override string) error {
	name, rest, found := strings.Cut(override, "=")
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return fmt.Errorf("malformed parameter override %q", override)
	}
	if !found {
		p.Set(name)
		return nil
	}
	if name == WEIGHT_SECTION {
		return p.parseWeightLine(rest)
	}
	p.Set(name, util.Tokenize(rest)...)
	return nil
}

func (p *Parameters) parseWeightLine(line string) error {
	name, rest, found := strings.Cut(line, "=")
	name = strings.TrimSpace(name)
	if !found || len(name) == 0 {
		return fmt.Errorf("malformed weight line %q, expected <name>= <weights>", line)
	}
	weights, err := util.ScanFloats(util.Tokenize(rest))
	if err != nil {
		return fmt.Errorf("weight %s: %w", name, err)
	}
	p.weights[name] = weights
	return nil
}

// ParseIni reads the sectioned format:
//
//	[feature]
//	WordPenalty
//	[weight]
//	WordPenalty0= -1
func ParseIni(reader io.Reader) (*Parameters, error) {
	c, err := Read(reader)
	if err != nil {
		return nil, err
	}
	params := NewParameters()
	section := ""
	for _, line := range c.Values {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			if _, exists := params.groups[section]; !exists && section != WEIGHT_SECTION {
				params.groups[section] = nil
			}
			continue
		}
		if len(section) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoSection, line)
		}
		if section == WEIGHT_SECTION {
			if err := params.parseWeightLine(line); err != nil {
				return nil, err
			}
			continue
		}
		params.groups[section] = append(params.groups[section], line)
	}
	return params, nil
}

// ReadParameters loads a configuration file; .yaml/.yml files are read as
// YAML, everything else as the sectioned format.
func ReadParameters(filename string) (*Parameters, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return ReadYAML(file)
	default:
		return ParseIni(file)
	}
}
