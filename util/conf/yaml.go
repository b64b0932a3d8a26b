package conf

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// ReadYAML reads a configuration where every top level key is a group.
// Scalars become single values, sequences become value lists, and the
// weight key maps feature names to a number or a list of numbers:
//
//	feature:
//	  - WordPenalty
//	mapping: [0 T 0]
//	threads: 4
//	weight:
//	  WordPenalty0: -1
func ReadYAML(reader io.Reader) (*Parameters, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	params := NewParameters()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := raw[key]
		if key == WEIGHT_SECTION {
			if err := params.yamlWeights(value); err != nil {
				return nil, err
			}
			continue
		}
		values, err := yamlValues(key, value)
		if err != nil {
			return nil, err
		}
		params.Set(key, values...)
	}
	return params, nil
}

func (p *Parameters) yamlWeights(value interface{}) error {
	asMap, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("yaml: %s must map feature names to weights", WEIGHT_SECTION)
	}
	for name, w := range asMap {
		switch typed := w.(type) {
		case []interface{}:
			weights := make([]float64, len(typed))
			for i, elem := range typed {
				f, ok := asFloat(elem)
				if !ok {
					return fmt.Errorf("yaml: weight %s: expected number, got %v", name, elem)
				}
				weights[i] = f
			}
			p.weights[name] = weights
		default:
			f, ok := asFloat(typed)
			if !ok {
				return fmt.Errorf("yaml: weight %s: expected number, got %v", name, w)
			}
			p.weights[name] = []float64{f}
		}
	}
	return nil
}

func yamlValues(key string, value interface{}) ([]string, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		values := make([]string, len(typed))
		for i, elem := range typed {
			switch elem.(type) {
			case map[string]interface{}, []interface{}:
				return nil, fmt.Errorf("yaml: %s: nested values are not supported", key)
			}
			values[i] = fmt.Sprint(elem)
		}
		return values, nil
	case map[string]interface{}:
		return nil, fmt.Errorf("yaml: %s: nested values are not supported", key)
	default:
		return []string{fmt.Sprint(typed)}, nil
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
