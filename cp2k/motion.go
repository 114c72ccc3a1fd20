package cp2k

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	stepHeader   = regexp.MustCompile(`Informations at step =\s*(\S+)`)
	scfConverged = regexp.MustCompile(`\*\*\* SCF run converged in\s+(\S+)\s+steps`)
	scfFailed    = "*** SCF run NOT converged ***"
	scfLeaving   = regexp.MustCompile(`Leaving inner SCF loop after reaching\s+(\S+)\s+steps`)
)

// motionColumns maps the labels of a geometry optimization step to
// their motion_info column
var motionColumns = []struct {
	Label  string
	Column string
}{
	{"Total Energy", "energy"},
	{"Max. step size", "max_step"},
	{"RMS step size", "rms_step"},
	{"Max. gradient", "max_grad"},
	{"RMS gradient", "rms_grad"},
}

// motionRule builds the per-step table of a geometry optimization plus
// the convergence record of every SCF run. Columns missing from a step
// block are NaN, as in the step 0 block written before the first
// optimization step.
func motionRule() Rule {
	const name = "motion_info"
	return Rule{
		Name: name,
		Kind: Table,
		Extract: func(lines []string, res Result) error {
			var (
				found     bool
				steps     = make([]int, 0)
				converged = make([]bool, 0)
				nscf      = make([]int, 0)
				leaving   int
			)
			cols := make(map[string][]float64)
			for _, c := range motionColumns {
				cols[c.Column] = make([]float64, 0)
			}
			for i := 0; i < len(lines); i++ {
				line := lines[i]
				if m := scfLeaving.FindStringSubmatch(line); m != nil {
					n, err := strconv.Atoi(m[1])
					if err != nil {
						return malformed(name, i, "%v", err)
					}
					leaving = n
					continue
				}
				if m := scfConverged.FindStringSubmatch(line); m != nil {
					n, err := strconv.Atoi(m[1])
					if err != nil {
						return malformed(name, i, "%v", err)
					}
					found = true
					converged = append(converged, true)
					nscf = append(nscf, n)
					leaving = 0
					continue
				}
				if strings.Contains(line, scfFailed) {
					found = true
					converged = append(converged, false)
					nscf = append(nscf, leaving)
					leaving = 0
					continue
				}
				m := stepHeader.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				found = true
				step, err := strconv.Atoi(m[1])
				if err != nil {
					return malformed(name, i, "%v", err)
				}
				vals, end, err := motionBlock(lines, i+1)
				if err != nil {
					return err
				}
				for _, c := range motionColumns {
					v, ok := vals[c.Label]
					if !ok {
						v = math.NaN()
					}
					cols[c.Column] = append(cols[c.Column], v)
				}
				steps = append(steps, step)
				i = end
			}
			if !found {
				return nil
			}
			info := map[string]any{
				"step":          steps,
				"scf_converged": converged,
				"scf_steps":     nscf,
			}
			for k, v := range cols {
				info[k] = v
			}
			res[name] = info
			return nil
		},
	}
}

// motionBlock reads "Label = value" rows up to the closing dashed rule
// and keeps the numeric ones. It returns the index of the rule.
func motionBlock(lines []string, start int) (map[string]float64, int, error) {
	vals := make(map[string]float64)
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "---") {
			return vals, i, nil
		}
		eq := strings.LastIndex(line, "=")
		if eq < 0 {
			continue
		}
		label := strings.TrimSpace(line[:eq])
		for _, c := range motionColumns {
			if label != c.Label {
				continue
			}
			v, err := parseFloat(strings.TrimSpace(line[eq+1:]))
			if err != nil {
				return nil, i, malformed("motion_info", i, "%v", err)
			}
			vals[label] = v
		}
	}
	return nil, len(lines), malformed("motion_info", start-1,
		"step block not terminated")
}
