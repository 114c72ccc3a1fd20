package cp2k

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	bandsHeader  = "KPOINTS| Band Structure Calculation"
	specialPoint = "KPOINTS| Special K-Point"
	bandsPerRow  = 4
)

var kpointLine = regexp.MustCompile(`Nr\..*Spin.*K-Point`)

// KpointLabel names the k-point at Index in the band structure path
type KpointLabel struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
}

// kpointRule parses the band structure that follows the last band
// structure header. Energies are tabulated per spin channel as
// bands[spin][kpoint][band].
func kpointRule() Rule {
	const name = "kpoint_data"
	return Rule{
		Name: name,
		Kind: Mapping,
		Extract: func(lines []string, res Result) error {
			start := -1
			for i, line := range lines {
				if strings.Contains(line, bandsHeader) {
					start = i
				}
			}
			if start < 0 {
				return nil
			}
			kpoints, labels, bands, err := parseBands(lines, start)
			if err != nil {
				return err
			}
			res[name] = map[string]any{
				"kpoints":    kpoints,
				"labels":     labels,
				"bands":      bands,
				"bands_unit": BandsUnits,
			}
			return nil
		},
	}
}

func parseBands(lines []string, start int) (
	kpoints [][]float64, labels []KpointLabel, bands [][][]float64, err error) {
	var (
		known  = make(map[[3]float64]string)
		spin1  [][]float64
		spin2  [][]float64
		nbands = -1
	)
	kpoints = make([][]float64, 0)
	labels = make([]KpointLabel, 0)
	for i := start; i < len(lines); i++ {
		line := lines[i]
		fields := strings.Fields(line)
		switch {
		case strings.Contains(line, specialPoint):
			if len(fields) < 5 {
				return nil, nil, nil, malformed("kpoint_data", i,
					"short special k-point %q", line)
			}
			k, err := kpointOf(fields)
			if err != nil {
				return nil, nil, nil, malformed("kpoint_data", i, "%v", err)
			}
			if strings.Join(fields[len(fields)-5:len(fields)-3], " ") != "not specified" {
				known[k] = fields[len(fields)-4]
			}
		case kpointLine.MatchString(line):
			if len(fields) < 7 {
				return nil, nil, nil, malformed("kpoint_data", i,
					"short k-point header %q", line)
			}
			spin, err := strconv.Atoi(fields[3])
			if err != nil {
				return nil, nil, nil, malformed("kpoint_data", i, "%v", err)
			}
			k, err := kpointOf(fields)
			if err != nil {
				return nil, nil, nil, malformed("kpoint_data", i, "%v", err)
			}
			band, next, err := bandRows(lines, i+1)
			if err != nil {
				return nil, nil, nil, err
			}
			if nbands < 0 {
				nbands = len(band)
			} else if len(band) != nbands {
				return nil, nil, nil, malformed("kpoint_data", i,
					"%d bands, expected %d", len(band), nbands)
			}
			switch spin {
			case 1:
				if label, ok := known[k]; ok {
					labels = append(labels, KpointLabel{len(kpoints), label})
				}
				kpoints = append(kpoints, k[:])
				spin1 = append(spin1, band)
			case 2:
				spin2 = append(spin2, band)
			default:
				return nil, nil, nil, malformed("kpoint_data", i,
					"bad spin channel %d", spin)
			}
			i = next - 1
		}
	}
	bands = make([][][]float64, 0, 2)
	if len(spin1) > 0 {
		bands = append(bands, spin1)
	}
	if len(spin2) > 0 {
		if len(spin2) != len(spin1) {
			return nil, nil, nil, malformed("kpoint_data", start,
				"%d spin 2 k-points for %d spin 1", len(spin2), len(spin1))
		}
		bands = append(bands, spin2)
	}
	return kpoints, labels, bands, nil
}

// kpointOf reads the three trailing coordinates of fields
func kpointOf(fields []string) (k [3]float64, err error) {
	vals, err := toFloats(fields[len(fields)-3:])
	if err != nil {
		return k, err
	}
	copy(k[:], vals)
	return k, nil
}

// bandRows reads the band count at lines[start] and the rows of
// energies after it, returning the index of the first line past them
func bandRows(lines []string, start int) ([]float64, int, error) {
	if start >= len(lines) {
		return nil, start, malformed("kpoint_data", start-1, "missing band count")
	}
	n, err := strconv.Atoi(strings.TrimSpace(lines[start]))
	if err != nil {
		return nil, start, malformed("kpoint_data", start, "%v", err)
	}
	rows := int(math.Ceil(float64(n) / bandsPerRow))
	end := start + 1 + rows
	if end > len(lines) {
		return nil, start, malformed("kpoint_data", start, "truncated bands")
	}
	band, err := toFloats(strings.Fields(strings.Join(lines[start+1:end], " ")))
	if err != nil {
		return nil, start, malformed("kpoint_data", start, "%v", err)
	}
	if len(band) != n {
		return nil, start, malformed("kpoint_data", start,
			"%d energies, expected %d", len(band), n)
	}
	return band, end, nil
}
