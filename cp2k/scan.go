package cp2k

import (
	"fmt"
	"strings"
)

// Catalogue is an ordered registry of named section rules. Rules run
// in registration order, so a rule may depend on keys written by any
// rule registered before it.
type Catalogue struct {
	rules []Rule
	index map[string]int
}

func NewCatalogue(rules ...Rule) *Catalogue {
	c := &Catalogue{index: make(map[string]int)}
	for _, r := range rules {
		c.Register(r)
	}
	return c
}

// Register appends r to c. It panics if the name is already taken.
func (c *Catalogue) Register(r Rule) {
	if _, ok := c.index[r.Name]; ok {
		panic(fmt.Sprintf("cp2k: section %q registered twice", r.Name))
	}
	c.index[r.Name] = len(c.rules)
	c.rules = append(c.rules, r)
}

func (c *Catalogue) Lookup(name string) (Rule, bool) {
	i, ok := c.index[name]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// Names returns the section names in registration order
func (c *Catalogue) Names() []string {
	ret := make([]string, len(c.rules))
	for i, r := range c.rules {
		ret[i] = r.Name
	}
	return ret
}

// Select returns the rules named in active in catalogue order.
// Duplicates are ignored and unknown names are an error.
func (c *Catalogue) Select(active []string) ([]Rule, error) {
	on := make([]bool, len(c.rules))
	for _, name := range active {
		i, ok := c.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSection, name)
		}
		on[i] = true
	}
	var ret []Rule
	for i, r := range c.rules {
		if on[i] {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

// Scanner holds the rules applied to an output file: Base rules always
// run, Sections only when activated, and Statuses always run last.
type Scanner struct {
	Base     []Rule
	Sections *Catalogue
	Statuses []Rule
}

// Scan applies the base rules, the activated sections, and the status
// rules to log with DefaultScanner
func Scan(log string, active []string) (Result, error) {
	return DefaultScanner.Scan(log, active)
}

func (s *Scanner) Scan(log string, active []string) (Result, error) {
	rules, err := s.Sections.Select(active)
	if err != nil {
		return nil, err
	}
	lines := splitLines(log)
	res := make(Result)
	for _, group := range [][]Rule{s.Base, rules, s.Statuses} {
		for _, r := range group {
			if err := r.Extract(lines, res); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func splitLines(log string) []string {
	lines := strings.Split(log, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}
