package main

import (
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"bwestbro.com/cp2k/cp2k"
)

// WriteRecords encodes records to w in format, which must be json or
// yaml
func WriteRecords(w io.Writer, format string, records []Record) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("invalid format %q", format)
}

// Rows copies m into a slice of rows
func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	ret := make([][]float64, r)
	for i := range ret {
		ret[i] = make([]float64, c)
		for j := range ret[i] {
			ret[i][j] = m.At(i, j)
		}
	}
	return ret
}

// WriteSections lists the entries of cat with their kinds, marking
// those in active
func WriteSections(w io.Writer, cat *cp2k.Catalogue, active []string) {
	for _, name := range cat.Names() {
		rule, _ := cat.Lookup(name)
		mark := " "
		if slices.Contains(active, name) {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-16s%s\n", mark, name, rule.Kind)
	}
}
