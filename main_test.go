package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs cp2kparse with args and returns its stdout, stderr and
// exit status
func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	code := ExitNormal
	if err != nil {
		code = ExitFailure
		var ee *ExitError
		if errors.As(err, &ee) {
			code = ee.Code
		}
	}
	return out.String(), errOut.String(), code
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"parse", "trajectory", "sections"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestParse(t *testing.T) {
	out, logs, code := execute(t, "parse", "testfiles/geo", "testfiles/bands")
	require.Equal(t, ExitNormal, code, logs)
	var records []Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)

	geo := records[0]
	assert.Equal(t, "testfiles/geo", geo.Dir)
	assert.Equal(t, "normal", geo.Outcome)
	assert.Empty(t, geo.Error)
	assert.InDelta(t, -16.4592016231, geo.Parameters["energy"], 1e-12)
	assert.InDelta(t, 0.59, geo.Parameters["bandgap_spin1_au"], 1e-12)
	assert.Nil(t, geo.Bands)
	motion, ok := geo.Parameters["motion_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{0.0, 1.0, 2.0}, motion["step"])
	maxStep, ok := motion["max_step"].([]any)
	require.True(t, ok)
	require.Len(t, maxStep, 3)
	assert.Nil(t, maxStep[0])
	require.NotNil(t, geo.Structure)
	assert.Equal(t, []string{"O", "H", "H"}, geo.Structure.Symbols)
	assert.InDelta(t, 210, geo.Structure.Volume, 1e-9)

	bands := records[1]
	assert.Equal(t, "testfiles/bands", bands.Dir)
	assert.Nil(t, bands.Structure)
	require.NotNil(t, bands.Bands)
	assert.Len(t, bands.Bands.Kpoints, 3)
	assert.Len(t, bands.Bands.Bands, 1)
	assert.Equal(t, "eV", bands.Bands.Unit)
	_, ok = bands.Parameters["kpoint_data"]
	assert.False(t, ok)
	assert.Contains(t, logs, "no restart file")
}

func TestParseYAML(t *testing.T) {
	out, _, code := execute(t, "parse", "--format", "yaml",
		"--profile", "base", "testfiles/bands")
	require.Equal(t, ExitNormal, code)
	var records []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "testfiles/bands", records[0]["dir"])
	params, ok := records[0]["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, params["nwarnings"])
	_, ok = records[0]["bands"]
	assert.False(t, ok, "base profile parsed bands")
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name string
		dirs []string
		want int
	}{
		{"aborted", []string{"testfiles/aborted"}, ExitAborted},
		{"missing output", []string{"testfiles/empty"}, ExitOutputMissing},
		{"error over outcome", []string{"testfiles/aborted", "testfiles/empty"}, ExitOutputMissing},
		{"bad restart", []string{"testfiles/badcell"}, ExitTrajectoryUnreadable},
		{"normal", []string{"testfiles/geo"}, ExitNormal},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, _, code := execute(t, append([]string{"parse"}, test.dirs...)...)
			assert.Equal(t, test.want, code)
			var records []Record
			require.NoError(t, json.Unmarshal([]byte(out), &records))
			assert.Len(t, records, len(test.dirs))
		})
	}
}

func TestParseAbortedRecord(t *testing.T) {
	out, _, _ := execute(t, "parse", "testfiles/aborted", "testfiles/empty")
	var records []Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "run aborted", records[0].Outcome)
	assert.Equal(t, ExitAborted, records[0].Status)
	_, ok := records[0].Parameters["aborted"]
	assert.False(t, ok, "sentinel left in parameters")
	assert.Equal(t, "RKS", records[0].Parameters["dft_type"])
	assert.Contains(t, records[1].Error, "aiida.out")
	assert.Nil(t, records[1].Parameters)
}

func TestParseBadFlags(t *testing.T) {
	_, _, code := execute(t, "parse", "--section", "dos", "testfiles/geo")
	assert.Equal(t, ExitFailure, code)
	_, _, code = execute(t, "parse", "--jobs", "0", "testfiles/geo")
	assert.Equal(t, ExitFailure, code)
	_, _, code = execute(t, "parse", "--config", "testfiles/bad.toml")
	assert.Equal(t, ExitFailure, code)
}

func TestTrajectory(t *testing.T) {
	out, _, code := execute(t, "trajectory", "testfiles/geo/aiida-1.restart")
	require.Equal(t, ExitNormal, code)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "3", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `Lattice="5.00000000 `), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "O "), lines[2])

	_, _, code = execute(t, "trajectory", "testfiles/empty/aiida-1.restart")
	assert.Equal(t, ExitFailure, code)
	_, _, code = execute(t, "trajectory", "testfiles/badcell/aiida-1.restart")
	assert.Equal(t, ExitTrajectoryUnreadable, code)
}

func TestSections(t *testing.T) {
	out, _, code := execute(t, "sections", "--profile", "base", "-s", "natoms")
	require.Equal(t, ExitNormal, code)
	got := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{
		"* natoms          scalar",
		"  init_nel        scalar",
		"  scf_parameters  mapping",
		"  spin_density    table",
		"  eigen           sequence",
		"  kpoint_data     mapping",
		"  motion_info     table",
	}
	assert.Equal(t, want, got)
}
