package featurevector

import (
	"fmt"
	"sort"
	"strings"
)

// Sparse maps dynamically named features to a single weight each.
type Sparse map[string]float64

func (v Sparse) Copy() Sparse {
	copied := make(Sparse, len(v))
	for k, val := range v {
		copied[k] = val
	}
	return copied
}

func (v Sparse) Add(other Sparse) Sparse {
	vec1 := v
	retvec := v.Copy()
	var val float64
	if other == nil {
		return retvec
	}
	for key, otherVal := range other {
		// vec1[key] == 0 if vec1[key] does not exist
		val = vec1[key] + otherVal
		if val != 0.0 {
			retvec[key] = val
		} else {
			delete(retvec, key)
		}
	}
	return retvec
}

// Keys returns the feature names sorted.
func (v Sparse) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Sparse) String() string {
	strs := make([]string, 0, len(v))
	for _, k := range v.Keys() {
		strs = append(strs, fmt.Sprintf("%v %v", k, v[k]))
	}
	return strings.Join(strs, "\n")
}
