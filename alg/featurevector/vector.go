package featurevector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNotSingleScore = errors.New("feature has more than one score component")
	ErrScoreCount     = errors.New("weight count does not match the feature's score count")
)

// Vector holds dense weights keyed by feature identity and sparse weights
// keyed by sparse feature name.
type Vector struct {
	Dense  map[string][]float64
	Sparse Sparse
}

func NewVector() *Vector {
	return &Vector{
		Dense:  make(map[string][]float64),
		Sparse: make(Sparse),
	}
}

func (v *Vector) Copy() *Vector {
	copied := &Vector{
		Dense:  make(map[string][]float64, len(v.Dense)),
		Sparse: v.Sparse.Copy(),
	}
	for k, vals := range v.Dense {
		copied.Dense[k] = append([]float64(nil), vals...)
	}
	return copied
}

// Resize grows the dense slot of identity to hold n weights.
func (v *Vector) Resize(identity string, n int) {
	cur := v.Dense[identity]
	if len(cur) >= n {
		return
	}
	extended := make([]float64, n)
	copy(extended, cur)
	v.Dense[identity] = extended
}

// Assign replaces the dense weights of identity.
func (v *Vector) Assign(identity string, weights []float64) {
	v.Dense[identity] = append([]float64(nil), weights...)
}

// AssignScores replaces the dense weights of a feature with numScores
// score components; any other number of weights is an error.
func (v *Vector) AssignScores(identity string, numScores int, weights []float64) error {
	if len(weights) != numScores {
		return fmt.Errorf("%s: %w: got %d, expected %d", identity, ErrScoreCount, len(weights), numScores)
	}
	v.Assign(identity, weights)
	return nil
}

// AssignOne sets the weight of a single-score feature.
func (v *Vector) AssignOne(identity string, weight float64) error {
	v.Resize(identity, 1)
	if len(v.Dense[identity]) > 1 {
		return fmt.Errorf("%s: %w", identity, ErrNotSingleScore)
	}
	v.Dense[identity][0] = weight
	return nil
}

func (v *Vector) AssignSparse(name string, weight float64) {
	v.Sparse[name] = weight
}

// Get returns the dense weights of identity; nil when none are set.
func (v *Vector) Get(identity string) []float64 {
	return v.Dense[identity]
}

func (v *Vector) SparseWeight(name string) float64 {
	return v.Sparse[name]
}

// PlusEquals adds other into v, element by element.
func (v *Vector) PlusEquals(other *Vector) {
	for identity, vals := range other.Dense {
		v.Resize(identity, len(vals))
		cur := v.Dense[identity]
		for i, val := range vals {
			cur[i] += val
		}
	}
	v.Sparse = v.Sparse.Add(other.Sparse)
}

// Dot scores a dense score vector of identity against its weights. Missing
// weights count as zero.
func (v *Vector) Dot(identity string, scores []float64) float64 {
	weights := v.Dense[identity]
	var total float64
	for i, s := range scores {
		if i < len(weights) {
			total += weights[i] * s
		}
	}
	return total
}

// Identities returns the dense keys sorted.
func (v *Vector) Identities() []string {
	keys := make([]string, 0, len(v.Dense))
	for k := range v.Dense {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Write dumps the vector in the weight file format.
func (v *Vector) Write(writer io.Writer) error {
	for _, identity := range v.Identities() {
		strs := make([]string, len(v.Dense[identity]))
		for i, w := range v.Dense[identity] {
			strs[i] = strconv.FormatFloat(w, 'g', -1, 64)
		}
		if _, err := fmt.Fprintf(writer, "%s= %s\n", identity, strings.Join(strs, " ")); err != nil {
			return err
		}
	}
	for _, name := range v.Sparse.Keys() {
		if _, err := fmt.Fprintf(writer, "%s %s\n", name, strconv.FormatFloat(v.Sparse[name], 'g', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}

// ReadWeightFile reads "<name> <w1> [w2...]" lines; a trailing '=' on the
// name is accepted. Repeated names accumulate.
func ReadWeightFile(reader io.Reader) (map[string][]float64, error) {
	entries := make(map[string][]float64)
	scanner := bufio.NewScanner(reader)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := strings.Fields(strings.Replace(line, "=", " ", 1))
		if len(fields) < 2 {
			return nil, fmt.Errorf("weight file line %d: expected <name> <weights>, got %q", lineNo, line)
		}
		name := fields[0]
		values := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			w, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("weight file line %d: bad weight %q", lineNo, f)
			}
			values[i] = w
		}
		if cur, exists := entries[name]; exists {
			for i := range values {
				if i < len(cur) {
					values[i] += cur[i]
				}
			}
			if len(cur) > len(values) {
				values = append(values, cur[len(values):]...)
			}
		}
		entries[name] = values
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func ReadWeightFileNamed(filename string) (map[string][]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadWeightFile(file)
}
