package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"bwestbro.com/cp2k/cp2k"
)

// Record is the parsed form of one run directory
type Record struct {
	Dir        string      `json:"dir" yaml:"dir"`
	Outcome    string      `json:"outcome" yaml:"outcome"`
	Status     int         `json:"status" yaml:"status"`
	Error      string      `json:"error,omitempty" yaml:"error,omitempty"`
	Parameters cp2k.Result `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Bands      *Bands      `json:"bands,omitempty" yaml:"bands,omitempty"`
	Structure  *Structure  `json:"structure,omitempty" yaml:"structure,omitempty"`
}

type Bands struct {
	Kpoints [][]float64        `json:"kpoints" yaml:"kpoints"`
	Labels  []cp2k.KpointLabel `json:"labels" yaml:"labels"`
	Bands   [][][]float64      `json:"bands" yaml:"bands"`
	Unit    string             `json:"unit" yaml:"unit"`
}

type Structure struct {
	Symbols   []string    `json:"symbols" yaml:"symbols"`
	Positions [][]float64 `json:"positions" yaml:"positions"`
	Cell      [][]float64 `json:"cell,omitempty" yaml:"cell,omitempty"`
	Volume    float64     `json:"volume,omitempty" yaml:"volume,omitempty"`
	Lengths   []float64   `json:"lengths,omitempty" yaml:"lengths,omitempty"`
}

// ReadRun parses the output and restart files in dir. Errors are
// recorded in the returned Record rather than returned, so one bad
// directory does not stop the others.
func ReadRun(dir string, conf Config, logger *slog.Logger) Record {
	rec := Record{Dir: dir}
	outcome, err := readRun(os.DirFS(dir), conf, logger, &rec)
	rec.Outcome = outcome.String()
	rec.Status = Status(outcome, err)
	if err != nil {
		rec.Error = err.Error()
		logger.Error("parse failed", "dir", dir, "err", err)
	}
	return rec
}

func readRun(fsys fs.FS, conf Config, logger *slog.Logger, rec *Record) (
	cp2k.Outcome, error) {
	raw, err := fs.ReadFile(fsys, conf.Output)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cp2k.Normal, fmt.Errorf("%w: %s", cp2k.ErrOutputMissing, conf.Output)
	case err != nil:
		return cp2k.Normal, fmt.Errorf("%w: %v", cp2k.ErrOutputUnreadable, err)
	}
	text, err := cp2k.Decode(raw)
	if err != nil {
		return cp2k.Normal, err
	}
	res, err := cp2k.Scan(text, conf.Sections)
	if err != nil {
		return cp2k.Normal, err
	}
	logger.Debug("scanned output", "dir", rec.Dir, "keys", len(res))
	outcome, params, bt, err := cp2k.Assemble(res)
	if err != nil {
		return outcome, err
	}
	rec.Parameters = params
	if bt != nil {
		rec.Bands = bandsOf(bt)
	}
	if conf.Restart == "" {
		return outcome, nil
	}
	geom, err := cp2k.ReadTrajectory(fsys, conf.Restart)
	switch {
	case errors.Is(err, cp2k.ErrTrajectoryMissing):
		logger.Info("no restart file", "dir", rec.Dir, "file", conf.Restart)
	case err != nil:
		return outcome, err
	default:
		rec.Structure = structureOf(geom)
	}
	return outcome, nil
}

func bandsOf(bt *cp2k.BandTable) *Bands {
	b := &Bands{
		Kpoints: [][]float64{},
		Labels:  bt.Labels,
		Bands:   make([][][]float64, 0, len(bt.Bands)),
		Unit:    bt.Unit,
	}
	if bt.Kpoints != nil {
		b.Kpoints = Rows(bt.Kpoints)
	}
	for _, m := range bt.Bands {
		b.Bands = append(b.Bands, Rows(m))
	}
	return b
}

func structureOf(g *cp2k.Geometry) *Structure {
	s := &Structure{
		Symbols:   g.Symbols,
		Positions: Rows(g.Positions),
	}
	if g.Cell != nil {
		s.Cell = Rows(g.Cell)
		s.Volume = g.Volume()
		s.Lengths = g.Lengths()
	}
	return s
}
