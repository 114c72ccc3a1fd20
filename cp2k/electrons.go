package cp2k

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nelLine     = regexp.MustCompile(`Number of electrons:\s+(\S+)`)
	spinHeader  = regexp.MustCompile(`^\s*Spin\s+([12])\s*$`)
	occupied    = regexp.MustCompile(`^\s*Eigenvalues of the occupied subspace spin\s+(\S+)`)
	unoccupied  = regexp.MustCompile(`Lowest Eigenvalues of the unoccupied subspace spin\s+(\S+)`)
	eigenFooter = []string{"Fermi Energy", "HOMO - LUMO gap"}
)

// headerLookback is how many lines above "Number of electrons:" may
// hold the "Spin N" header of an unrestricted run
const headerLookback = 3

// initNelRule reads the electron counts of the first SCF. Restricted
// runs print one total, which is split evenly between the channels.
func initNelRule() Rule {
	const name = "init_nel"
	return Rule{
		Name: name,
		Kind: Scalar,
		Extract: func(lines []string, res Result) error {
			var spin1, spin2 *int
			for i, line := range lines {
				m := nelLine.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				n, err := strconv.Atoi(m[1])
				if err != nil {
					return malformed(name, i, "%v", err)
				}
				switch spinAbove(lines, i) {
				case 1:
					if spin1 == nil {
						spin1 = &n
					}
				case 2:
					if spin2 == nil {
						spin2 = &n
					}
				default:
					if spin1 == nil && spin2 == nil {
						half := n / 2
						spin1, spin2 = &half, &half
					}
				}
				if spin1 != nil && spin2 != nil {
					break
				}
			}
			if spin1 != nil {
				res["init_nel_spin1"] = *spin1
			}
			if spin2 != nil {
				res["init_nel_spin2"] = *spin2
			}
			return nil
		},
	}
}

// spinAbove returns the spin channel named by a header in the few lines
// before i, or 0
func spinAbove(lines []string, i int) int {
	for j := i - 1; j >= 0 && j >= i-headerLookback; j-- {
		if m := spinHeader.FindStringSubmatch(lines[j]); m != nil {
			return int(m[1][0] - '0')
		}
	}
	return 0
}

// eigenRule collects the orbital energies of each spin channel. A new
// occupied block restarts its channel, so the last SCF wins, and the
// unoccupied block that follows is appended to it.
func eigenRule() Rule {
	const name = "eigen"
	return Rule{
		Name: name,
		Kind: Sequence,
		Extract: func(lines []string, res Result) error {
			eigen := make(map[int][]float64)
			for i := 0; i < len(lines); i++ {
				line := lines[i]
				var (
					m     []string
					reset bool
				)
				if m = unoccupied.FindStringSubmatch(line); m == nil {
					if m = occupied.FindStringSubmatch(line); m == nil {
						continue
					}
					reset = true
				}
				spin, err := strconv.Atoi(m[1])
				if err != nil || spin < 1 || spin > 2 {
					return malformed(name, i, "bad spin channel %q", m[1])
				}
				vals, next, err := eigenBlock(lines, i+1)
				if err != nil {
					return err
				}
				if reset {
					eigen[spin] = vals
				} else {
					eigen[spin] = append(eigen[spin], vals...)
				}
				i = next - 1
			}
			for spin, vals := range eigen {
				res["eigen_spin"+strconv.Itoa(spin)+"_au"] = vals
			}
			return nil
		},
	}
}

// eigenBlock reads the rows of numbers starting at lines[start],
// skipping the dashed rule under the header. It returns the values and
// the index of the line that ended the block.
func eigenBlock(lines []string, start int) ([]float64, int, error) {
	vals := make([]float64, 0)
	i := start
	if i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "---") {
		i++
	}
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" || containsAny([]string{line}, eigenFooter) >= 0 {
			break
		}
		row, err := toFloats(strings.Fields(line))
		if err != nil {
			return nil, i, malformed("eigen", i, "%v", err)
		}
		vals = append(vals, row...)
	}
	return vals, i, nil
}
