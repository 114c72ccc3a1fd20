package main

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"bwestbro.com/cp2k/cp2k"
)

func TestLoadConfig(t *testing.T) {
	got, err := LoadConfig("testfiles/test.toml")
	if err != nil {
		t.Fatal(err)
	}
	want := RawConf{
		Output:   "aiida.out",
		Restart:  "aiida-1.restart",
		Profile:  "base",
		Sections: []string{"natoms", "eigen", "natoms"},
		Format:   "yaml",
		Jobs:     2,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, wanted %v\n", got, want)
	}
	conf, err := got.ToConfig()
	if err != nil {
		t.Fatal(err)
	}
	wantSections := []string{"natoms", "eigen"}
	if !reflect.DeepEqual(conf.Sections, wantSections) {
		t.Errorf("got %v, wanted %v\n", conf.Sections, wantSections)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	rc, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	got, err := rc.ToConfig()
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		Output:   "aiida.out",
		Restart:  "aiida-1.restart",
		Sections: cp2k.AdvancedSections,
		Format:   "json",
		Jobs:     4,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, wanted %v\n", got, want)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig("testfiles/missing.toml"); err == nil {
		t.Errorf("expected an error for a missing file\n")
	}
	_, err := LoadConfig("testfiles/bad.toml")
	if err == nil || !strings.Contains(err.Error(), "outputs") {
		t.Errorf("got %v, wanted an unknown key error\n", err)
	}
}

func TestToConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*RawConf)
		is   error
	}{
		{"profile", func(rc *RawConf) { rc.Profile = "expert" }, nil},
		{"section", func(rc *RawConf) { rc.Sections = []string{"dos"} }, cp2k.ErrUnknownSection},
		{"format", func(rc *RawConf) { rc.Format = "xml" }, nil},
		{"jobs", func(rc *RawConf) { rc.Jobs = 0 }, nil},
		{"output", func(rc *RawConf) { rc.Output = "" }, nil},
	}
	for _, test := range tests {
		rc := DefaultConf()
		test.edit(&rc)
		_, err := rc.ToConfig()
		if err == nil {
			t.Errorf("%s: expected an error\n", test.name)
			continue
		}
		if test.is != nil && !errors.Is(err, test.is) {
			t.Errorf("%s: got %v, wanted %v\n", test.name, err, test.is)
		}
	}
}
