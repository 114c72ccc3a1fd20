package cp2k

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	coordBlock = regexp.MustCompile(`(?s)\n\s*&COORD\s*\n(.*?)\n\s*&END COORD\b`)
	cellBlock  = regexp.MustCompile(`(?s)\n\s*&CELL\s*\n(.*?)\n\s*&END CELL\b`)
	nonLetter  = regexp.MustCompile(`[^a-zA-Z]`)
)

// scaledOn holds the values that switch SCALED coordinates on
var scaledOn = map[string]struct{}{
	"T":      {},
	"TRUE":   {},
	".TRUE.": {},
	"Y":      {},
	"YES":    {},
	"ON":     {},
}

// toAng holds the Angstrom per unit of the lengths a UNIT keyword may
// name. The Bohr value is from
// https://physics.nist.gov/cgi-bin/cuu/Value?bohrrada0
var toAng = map[string]float64{
	"angstrom": 1,
	"bohr":     0.5291_772_109_03,
	"nm":       10,
	"pm":       0.01,
}

// unitScale returns the factor converting lengths in the unit named on
// a UNIT line to Angstrom
func unitScale(fields []string) (float64, error) {
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: bad UNIT line %q",
			ErrTrajectoryUnreadable, strings.Join(fields, " "))
	}
	f, ok := toAng[strings.ToLower(fields[1])]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q",
			ErrTrajectoryUnreadable, fields[1])
	}
	return f, nil
}

// Geometry is the structure stored in a restart file. Positions holds
// one row per atom in Angstrom, converted from the UNIT of the &COORD
// section; SCALED coordinates are left as fractions of the cell. Cell
// holds the lattice vectors A, B and C as rows in Angstrom and is nil
// for non-periodic restarts.
type Geometry struct {
	Symbols   []string
	Positions *mat.Dense
	Cell      *mat.Dense
}

func (g *Geometry) NumAtoms() int {
	return len(g.Symbols)
}

// Volume returns the cell volume in cubic Angstrom, or 0 without a
// cell
func (g *Geometry) Volume() float64 {
	if g.Cell == nil {
		return 0
	}
	return math.Abs(mat.Det(g.Cell))
}

// Lengths returns the lengths of the lattice vectors
func (g *Geometry) Lengths() []float64 {
	if g.Cell == nil {
		return nil
	}
	ret := make([]float64, 3)
	for i := range ret {
		ret[i] = floats.Norm(g.Cell.RawRowView(i), 2)
	}
	return ret
}

// XYZ formats g as an extended xyz frame, with the cell in the comment
// line when there is one
func (g *Geometry) XYZ() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%d\n", g.NumAtoms())
	if g.Cell != nil {
		buf.WriteString(`Lattice="`)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if i+j > 0 {
					buf.WriteString(" ")
				}
				fmt.Fprintf(&buf, "%.8f", g.Cell.At(i, j))
			}
		}
		buf.WriteString(`" Properties=species:S:1:pos:R:3`)
	}
	buf.WriteString("\n")
	for i, sym := range g.Symbols {
		fmt.Fprintf(&buf, "%-2s%20.12f%20.12f%20.12f\n",
			sym,
			g.Positions.At(i, 0),
			g.Positions.At(i, 1),
			g.Positions.At(i, 2),
		)
	}
	return buf.String()
}

// ReadTrajectory parses the restart file name in fsys. A missing file
// gives ErrTrajectoryMissing, which callers may treat as a run that
// never reached a checkpoint.
func ReadTrajectory(fsys fs.FS, name string) (*Geometry, error) {
	raw, err := fs.ReadFile(fsys, name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrTrajectoryMissing, name)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTrajectoryUnreadable, err)
	}
	text, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrajectoryUnreadable, err)
	}
	return ParseTrajectory(text)
}

// ParseTrajectory extracts the atoms and, if present, the cell from
// the &COORD and &CELL sections of a restart file
func ParseTrajectory(text string) (*Geometry, error) {
	// the patterns anchor on a preceding newline
	text = "\n" + strings.ReplaceAll(text, "\r\n", "\n")
	m := coordBlock.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: no &COORD section", ErrTrajectoryUnreadable)
	}
	var (
		symbols []string
		coords  []float64
		scale   = 1.0
		scaled  bool
	)
	for _, line := range strings.Split(m[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "UNIT":
			var err error
			if scale, err = unitScale(fields); err != nil {
				return nil, err
			}
			continue
		case "SCALED":
			_, on := scaledOn[strings.ToUpper(strings.Join(fields[1:], ""))]
			scaled = len(fields) == 1 || on
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("%w: bad atom line %q",
				ErrTrajectoryUnreadable, line)
		}
		xyz, err := toFloats(fields[1:4])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTrajectoryUnreadable, err)
		}
		symbols = append(symbols, nonLetter.ReplaceAllString(fields[0], ""))
		coords = append(coords, xyz...)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: empty &COORD section", ErrTrajectoryUnreadable)
	}
	g := &Geometry{
		Symbols:   symbols,
		Positions: mat.NewDense(len(symbols), 3, coords),
	}
	if scale != 1 && !scaled {
		g.Positions.Scale(scale, g.Positions)
	}
	if m := cellBlock.FindStringSubmatch(text); m != nil {
		cell, err := parseCell(m[1])
		if err != nil {
			return nil, err
		}
		g.Cell = cell
	}
	return g, nil
}

// parseCell reads the A, B and C rows of a &CELL section, skipping
// nested subsections like &CELL_REF
func parseCell(block string) (*mat.Dense, error) {
	rows := make(map[string][]float64)
	var (
		depth int
		scale = 1.0
	)
	for _, line := range strings.Split(block, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(fields[0], "&END"):
			depth--
			continue
		case strings.HasPrefix(fields[0], "&"):
			depth++
			continue
		case depth > 0:
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "UNIT":
			var err error
			if scale, err = unitScale(fields); err != nil {
				return nil, err
			}
		case "A", "B", "C":
			if len(fields) != 4 {
				return nil, fmt.Errorf("%w: bad cell line %q",
					ErrTrajectoryUnreadable, line)
			}
			v, err := toFloats(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTrajectoryUnreadable, err)
			}
			rows[strings.ToUpper(fields[0])] = v
		}
	}
	if len(rows) != 3 {
		return nil, fmt.Errorf("%w: cell needs A, B and C vectors",
			ErrTrajectoryUnreadable)
	}
	data := make([]float64, 0, 9)
	for _, k := range []string{"A", "B", "C"} {
		data = append(data, rows[k]...)
	}
	cell := mat.NewDense(3, 3, data)
	if scale != 1 {
		cell.Scale(scale, cell)
	}
	return cell, nil
}
