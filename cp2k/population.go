package cp2k

import (
	"strings"
)

const (
	mullikenHeader = "Mulliken Population Analysis"
	mullikenTotal  = "# Total charge"
)

// spinDensityRule reads the spin moment of every atom from the last
// Mulliken population table. Restricted tables have no spin column and
// give zero moments.
func spinDensityRule() Rule {
	const name = "spin_density"
	return Rule{
		Name: name,
		Kind: Table,
		Extract: func(lines []string, res Result) error {
			var (
				spins []float64
				found bool
				at    int
			)
			for i := 0; i < len(lines); i++ {
				if !strings.Contains(lines[i], mullikenHeader) {
					continue
				}
				found, at = true, i
				var err error
				spins, i, err = mullikenTable(lines, i+1)
				if err != nil {
					return err
				}
			}
			if !found {
				return nil
			}
			natoms, ok, err := intField(res, "natoms")
			if err != nil {
				return malformed(name, at, "%v", err)
			}
			if ok && len(spins) != natoms {
				return malformed(name, at,
					"%d rows for %d atoms", len(spins), natoms)
			}
			res[name] = spins
			return nil
		},
	}
}

// mullikenTable reads atom rows from lines[start] up to the total
// line, returning the moments and the index of the total line
func mullikenTable(lines []string, start int) ([]float64, int, error) {
	spins := make([]float64, 0)
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, mullikenTotal):
			return spins, i, nil
		case line == "", strings.HasPrefix(line, "#"):
			continue
		}
		fields := strings.Fields(line)
		switch len(fields) {
		case 7:
			v, err := parseFloat(fields[6])
			if err != nil {
				return nil, i, malformed("spin_density", i, "%v", err)
			}
			spins = append(spins, v)
		case 5:
			if _, err := parseFloat(fields[4]); err != nil {
				return nil, i, malformed("spin_density", i, "%v", err)
			}
			spins = append(spins, 0)
		default:
			return nil, i, malformed("spin_density", i,
				"unexpected row %q", line)
		}
	}
	return nil, len(lines), malformed("spin_density", start-1,
		"table not terminated by %q", mullikenTotal)
}
