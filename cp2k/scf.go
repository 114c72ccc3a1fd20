package cp2k

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	scfHeader = "SCF PARAMETERS"
	outerSCF  = "Outer loop SCF in use"
)

var (
	unitsSuffix = regexp.MustCompile(`\s*\[([^\]]*)\]`)
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]`)
	outerRow    = regexp.MustCompile(`^([a-z_]+)\s+(\S+)$`)
)

// scfParametersRule reads the SCF PARAMETERS block into a mapping from
// normalized labels to typed values. The last block wins.
func scfParametersRule() Rule {
	const name = "scf_parameters"
	return Rule{
		Name: name,
		Kind: Mapping,
		Extract: func(lines []string, res Result) error {
			for i := 0; i < len(lines); i++ {
				at := strings.Index(lines[i], scfHeader)
				if at < 0 {
					continue
				}
				params := make(map[string]any)
				first := lines[i][at+len(scfHeader):]
				j := i
				for line := first; ; line = lines[j] {
					if err := scfRow(params, line); err != nil {
						return malformed(name, j, "%v", err)
					}
					j++
					if j >= len(lines) || strings.TrimSpace(lines[j]) == "" {
						break
					}
				}
				res[name] = params
				i = j
			}
			return nil
		},
	}
}

// scfRow adds the parameter on line to params. Rules and free-text
// notes carry no value and are skipped. After the outer loop header,
// the "name value" rows of the outer loop are stored with an outer_
// prefix.
func scfRow(params map[string]any, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "", strings.HasPrefix(line, "---"):
		return nil
	case strings.HasPrefix(line, "added MOs"):
		fields := strings.Fields(strings.TrimPrefix(line, "added MOs"))
		mos := make([]int, len(fields))
		for i, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return err
			}
			mos[i] = n
		}
		params["added_mos"] = mos
		return nil
	case line == "No outer SCF":
		params["outer_scf"] = false
		return nil
	case line == outerSCF:
		params["outer_scf"] = true
		return nil
	}
	colon := strings.LastIndex(line, ":")
	if colon < 0 {
		if m := outerRow.FindStringSubmatch(line); m != nil && params["outer_scf"] == true {
			params["outer_"+m[1]] = typed(m[2])
		}
		return nil
	}
	key := scfKey(line[:colon])
	val := strings.TrimSpace(line[colon+1:])
	if key == "" || val == "" {
		return fmt.Errorf("empty parameter in %q", line)
	}
	params[key] = typed(val)
	return nil
}

// scfKey normalizes "level_shift [a.u.]" to "level_shift_au" and
// "Mixing method" to "mixing_method". The unit is kept as a suffix.
func scfKey(label string) string {
	var unit string
	if m := unitsSuffix.FindStringSubmatch(label); m != nil {
		unit = nonAlnum.ReplaceAllString(strings.ToLower(m[1]), "")
		label = unitsSuffix.ReplaceAllString(label, "")
	}
	key := strings.ToLower(strings.Join(strings.Fields(label), "_"))
	if unit != "" && key != "" {
		key += "_" + unit
	}
	return key
}
