package cp2k

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the shape of the value a Rule produces
type Kind int

const (
	Scalar Kind = iota
	Mapping
	Sequence
	Table
	Status
)

func (k Kind) String() string {
	return []string{
		"scalar",
		"mapping",
		"sequence",
		"table",
		"status",
	}[k]
}

// Result is the flat mapping of field names to values produced by
// Scan. Sections whose markers never appear leave no keys behind.
type Result map[string]any

// MarshalJSON encodes r with NaN values, which JSON cannot represent,
// written as null
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(nullNaN(map[string]any(r)))
}

// nullNaN returns v with every NaN replaced by nil. Maps are copied; a
// []float64 is copied only when it holds a NaN.
func nullNaN(v any) any {
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) {
			return nil
		}
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				ret := make([]any, len(v))
				for i, f := range v {
					ret[i] = nullNaN(f)
				}
				return ret
			}
		}
	case map[string]any:
		ret := make(map[string]any, len(v))
		for k, e := range v {
			ret[k] = nullNaN(e)
		}
		return ret
	}
	return v
}

// Rule extracts the fields of one named section from the lines of an
// output file. Extract may read keys written by rules that run before
// it.
type Rule struct {
	Name    string
	Kind    Kind
	Extract func(lines []string, res Result) error
}

// Converter turns a captured token into a typed value
type Converter func(string) (any, error)

// Choice pairs a phrase with the value it selects in a ChoiceRule
type Choice struct {
	Phrase string
	Value  string
}

// parseFloat is strconv.ParseFloat that also accepts Fortran D
// exponents
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, "D", "E", -1), 64)
}

func toFloat(s string) (any, error) {
	return parseFloat(s)
}

func toInt(s string) (any, error) {
	return strconv.Atoi(s)
}

// toFloats converts a list of strings to float64s
func toFloats(strs []string) ([]float64, error) {
	ret := make([]float64, len(strs))
	var err error
	for i, s := range strs {
		ret[i], err = parseFloat(s)
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// typed tries int, then float, then falls back to the string itself
func typed(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := parseFloat(s); err == nil {
		return f
	}
	return s
}

// ScalarRule stores the first capture group of re, converted by conv,
// under key. When the marker recurs the last occurrence wins. If units
// is not empty it is stored under key+"_units" alongside the value.
func ScalarRule(name, key string, re *regexp.Regexp, conv Converter,
	units string) Rule {
	return Rule{
		Name: name,
		Kind: Scalar,
		Extract: func(lines []string, res Result) error {
			for i, line := range lines {
				m := re.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				v, err := conv(m[1])
				if err != nil {
					return malformed(name, i, "%v", err)
				}
				res[key] = v
				if units != "" {
					res[key+"_units"] = units
				}
			}
			return nil
		},
	}
}

// FlagRule always sets key, to true if any of phrases occurs
func FlagRule(name, key string, phrases ...string) Rule {
	return Rule{
		Name: name,
		Kind: Scalar,
		Extract: func(lines []string, res Result) error {
			res[key] = containsAny(lines, phrases) >= 0
			return nil
		},
	}
}

// StatusRule sets the sentinel key to true if any of phrases occurs
// and leaves it absent otherwise
func StatusRule(key string, phrases ...string) Rule {
	return Rule{
		Name: key,
		Kind: Status,
		Extract: func(lines []string, res Result) error {
			if containsAny(lines, phrases) >= 0 {
				res[key] = true
			}
			return nil
		},
	}
}

// ChoiceRule stores the Value of the last matching Choice under key
func ChoiceRule(name, key string, choices ...Choice) Rule {
	return Rule{
		Name: name,
		Kind: Scalar,
		Extract: func(lines []string, res Result) error {
			for _, line := range lines {
				for _, c := range choices {
					if strings.Contains(line, c.Phrase) {
						res[key] = c.Value
						break
					}
				}
			}
			return nil
		},
	}
}

// MessageRule collects the message of every Choice whose phrase
// occurs, once each, in order of first appearance
func MessageRule(name, key string, choices ...Choice) Rule {
	return Rule{
		Name: name,
		Kind: Sequence,
		Extract: func(lines []string, res Result) error {
			var msgs []string
			seen := make(map[string]bool)
			for _, line := range lines {
				for _, c := range choices {
					if !seen[c.Value] && strings.Contains(line, c.Phrase) {
						seen[c.Value] = true
						msgs = append(msgs, c.Value)
					}
				}
			}
			if len(msgs) > 0 {
				res[key] = msgs
			}
			return nil
		},
	}
}

// containsAny returns the index of the first line containing one of
// phrases, or -1
func containsAny(lines, phrases []string) int {
	for i, line := range lines {
		for _, p := range phrases {
			if strings.Contains(line, p) {
				return i
			}
		}
	}
	return -1
}

// intField returns the integer stored under key, if any
func intField(res Result, key string) (int, bool, error) {
	v, ok := res[key]
	if !ok {
		return 0, false, nil
	}
	i, ok := v.(int)
	if !ok {
		return 0, false, fmt.Errorf("%s is %T, not int", key, v)
	}
	return i, true, nil
}
