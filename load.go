package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/slices"

	"bwestbro.com/cp2k/cp2k"
)

var formats = []string{"json", "yaml"}

type RawConf struct {
	Output   string
	Restart  string
	Profile  string
	Sections []string
	Format   string
	Jobs     int
}

// DefaultConf returns the settings used for keys missing from the
// config file
func DefaultConf() RawConf {
	return RawConf{
		Output:  "aiida.out",
		Restart: "aiida-1.restart",
		Profile: "advanced",
		Format:  "json",
		Jobs:    4,
	}
}

// ToConfig expands the profile, appends the extra sections and
// validates everything against the section catalogue
func (rc RawConf) ToConfig() (conf Config, err error) {
	profile, err := cp2k.Profile(rc.Profile)
	if err != nil {
		return
	}
	sections := append(profile, rc.Sections...)
	if _, err = cp2k.Sections.Select(sections); err != nil {
		return
	}
	if !slices.Contains(formats, rc.Format) {
		err = fmt.Errorf("invalid format %q: must be one of %v",
			rc.Format, formats)
		return
	}
	if rc.Jobs < 1 {
		err = fmt.Errorf("jobs must be positive, got %d", rc.Jobs)
		return
	}
	if rc.Output == "" {
		err = fmt.Errorf("empty output file name")
		return
	}
	conf.Output = rc.Output
	conf.Restart = rc.Restart
	conf.Sections = dedup(sections)
	conf.Format = rc.Format
	conf.Jobs = rc.Jobs
	return
}

type Config struct {
	Output   string
	Restart  string
	Sections []string
	Format   string
	Jobs     int
}

// LoadConfig reads filename over the defaults. An empty filename
// gives the defaults unchanged.
func LoadConfig(filename string) (RawConf, error) {
	rc := DefaultConf()
	if filename == "" {
		return rc, nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return rc, err
	}
	defer f.Close()
	cont, err := io.ReadAll(f)
	if err != nil {
		return rc, err
	}
	md, err := toml.Decode(string(cont), &rc)
	if err != nil {
		return rc, fmt.Errorf("%s: %w", filename, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return rc, fmt.Errorf("%s: unknown key %q", filename, undec[0].String())
	}
	return rc, nil
}

// dedup drops repeated names, keeping the first of each
func dedup(names []string) []string {
	ret := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(ret, n) {
			ret = append(ret, n)
		}
	}
	return ret
}
