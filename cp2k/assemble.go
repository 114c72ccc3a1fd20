package cp2k

import (
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// Outcome classifies how a run ended
type Outcome int

const (
	Normal Outcome = iota
	GeometryNotConverged
	SpinTreatmentRequired
	RunAborted
)

func (o Outcome) String() string {
	return []string{
		"normal",
		"geometry not converged",
		"spin treatment required",
		"run aborted",
	}[o]
}

// outcomes lists the sentinel checked for each non-normal Outcome, in
// order of precedence
var outcomes = []struct {
	Key     string
	Outcome Outcome
}{
	{GeoNotConverged, GeometryNotConverged},
	{UKSNeeded, SpinTreatmentRequired},
	{Aborted, RunAborted},
}

// BandTable is the band structure promoted out of a Result. Bands
// holds one kpoint x band matrix per spin channel.
type BandTable struct {
	Kpoints *mat.Dense
	Labels  []KpointLabel
	Bands   []*mat.Dense
	Unit    string
}

// Assemble post-processes the Result of Scan. It selects the Outcome
// from the status sentinels, adds the band gaps when eigenvalues were
// parsed, and moves kpoint_data into a BandTable. The returned Result
// is a copy without sentinel keys; res itself is not modified.
func Assemble(res Result) (Outcome, Result, *BandTable, error) {
	out := make(Result, len(res))
	for k, v := range res {
		out[k] = v
	}
	outcome := Normal
	for _, o := range outcomes {
		if _, ok := out[o.Key]; ok {
			outcome = o.Outcome
			break
		}
	}
	if _, ok := out["eigen_spin1_au"]; ok {
		if err := bandGap(out); err != nil {
			return outcome, nil, nil, err
		}
	}
	var bands *BandTable
	if kd, ok := out["kpoint_data"]; ok {
		var err error
		bands, err = bandTable(kd)
		if err != nil {
			return outcome, nil, nil, err
		}
		delete(out, "kpoint_data")
	}
	for _, s := range Sentinels {
		delete(out, s)
	}
	return outcome, out, bands, nil
}

// bandGap sets bandgap_spin1_au and bandgap_spin2_au from the
// eigenvalues. The lumo of each channel sits at its initial electron
// count; if either count runs past the end of its channel, the
// electrons are assumed to have moved between channels and both lumos
// are taken as the last eigenvalue.
func bandGap(res Result) error {
	dft, ok := res["dft_type"].(string)
	if !ok {
		return gapError("dft_type missing")
	}
	eigen1, ok := res["eigen_spin1_au"].([]float64)
	if !ok {
		return gapError("eigen_spin1_au is %T", res["eigen_spin1_au"])
	}
	if dft == "RKS" {
		res["eigen_spin2_au"] = slices.Clone(eigen1)
	}
	eigen2, ok := res["eigen_spin2_au"].([]float64)
	if !ok {
		return gapError("eigen_spin2_au missing for %s", dft)
	}
	if len(eigen1) == 0 || len(eigen2) == 0 {
		return gapError("empty eigenvalue channel")
	}
	lumo1, ok1, err := intField(res, "init_nel_spin1")
	if err != nil {
		return gapError("%v", err)
	}
	lumo2, ok2, err := intField(res, "init_nel_spin2")
	if err != nil {
		return gapError("%v", err)
	}
	if !ok1 || !ok2 {
		return gapError("init_nel missing")
	}
	if lumo1 < 0 || lumo2 < 0 {
		return gapError("negative electron count")
	}
	if lumo1 > len(eigen1)-1 || lumo2 > len(eigen2)-1 {
		lumo1 = len(eigen1) - 1
		lumo2 = len(eigen2) - 1
	}
	res["bandgap_spin1_au"] = at(eigen1, lumo1) - at(eigen1, lumo1-1)
	res["bandgap_spin2_au"] = at(eigen2, lumo2) - at(eigen2, lumo2-1)
	return nil
}

// at indexes s, counting negative i from the end, so an empty channel
// takes its homo from the top of the spectrum
func at(s []float64, i int) float64 {
	if i < 0 {
		i += len(s)
	}
	return s[i]
}

func gapError(format string, a ...any) error {
	return &SectionError{
		Section: "eigen",
		Err:     fmt.Errorf("band gap: "+format, a...),
	}
}

// bandTable converts the kpoint_data mapping written by Scan
func bandTable(v any) (*BandTable, error) {
	kd, ok := v.(map[string]any)
	if !ok {
		return nil, kpointError("kpoint_data is %T", v)
	}
	kpoints, ok := kd["kpoints"].([][]float64)
	if !ok {
		return nil, kpointError("kpoints is %T", kd["kpoints"])
	}
	labels, ok := kd["labels"].([]KpointLabel)
	if !ok {
		return nil, kpointError("labels is %T", kd["labels"])
	}
	bands, ok := kd["bands"].([][][]float64)
	if !ok {
		return nil, kpointError("bands is %T", kd["bands"])
	}
	unit, ok := kd["bands_unit"].(string)
	if !ok {
		return nil, kpointError("bands_unit is %T", kd["bands_unit"])
	}
	bt := &BandTable{
		Labels: labels,
		Unit:   unit,
	}
	if len(kpoints) == 0 {
		return bt, nil
	}
	var err error
	if bt.Kpoints, err = dense(kpoints); err != nil {
		return nil, kpointError("kpoints: %v", err)
	}
	for spin, b := range bands {
		if len(b) != len(kpoints) {
			return nil, kpointError("spin %d has %d k-points, want %d",
				spin+1, len(b), len(kpoints))
		}
		m, err := dense(b)
		if err != nil {
			return nil, kpointError("spin %d: %v", spin+1, err)
		}
		bt.Bands = append(bt.Bands, m)
	}
	return bt, nil
}

// dense packs equal-length rows into a matrix
func dense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty table")
	}
	c := len(rows[0])
	data := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), c, data), nil
}

func kpointError(format string, a ...any) error {
	return &SectionError{
		Section: "kpoint_data",
		Err:     fmt.Errorf(format, a...),
	}
}
