package cp2k

import (
	"fmt"
	"regexp"

	"golang.org/x/exp/slices"
)

// Units of the values stored under the same key
const (
	EnergyUnits = "a.u."
	BandsUnits  = "eV"
)

// Status sentinel keys. They select the Outcome in Assemble and are
// never handed to the caller.
const (
	GeoNotConverged = "geo_not_converged"
	UKSNeeded       = "uks_needed"
	Aborted         = "aborted"
)

var Sentinels = []string{GeoNotConverged, UKSNeeded, Aborted}

var (
	energyLine   = regexp.MustCompile(`^ ENERGY\|.*:\s+(\S+)\s*$`)
	warningsLine = regexp.MustCompile(
		`The number of warnings for this run is\s*:?\s*(\S+)`)
	natomsLine = regexp.MustCompile(`- Atoms:\s+(\S+)`)
)

// BaseRules run on every scan
var BaseRules = []Rule{
	FlagRule("exceeded_walltime", "exceeded_walltime",
		"exceeded requested execution time"),
	ScalarRule("energy", "energy", energyLine, toFloat, EnergyUnits),
	ScalarRule("nwarnings", "nwarnings", warningsLine, toInt, ""),
	ChoiceRule("dft_type", "dft_type",
		Choice{"DFT| Spin restricted Kohn-Sham (RKS) calculation", "RKS"},
		Choice{"DFT| Spin unrestricted (spin-polarized) Kohn-Sham calculation", "UKS"},
		Choice{"DFT| Spin restricted open Kohn-Sham (ROKS) calculation", "ROKS"},
	),
	MessageRule("warnings", "warnings",
		Choice{"SCF run NOT converged", "One or more SCF run did not converge"},
		Choice{"MAXIMUM NUMBER OF OPTIMIZATION STEPS REACHED",
			"Maximum number of optimization steps reached"},
	),
}

// StatusRules detect the terminal states of a run. A sentinel reached
// by several phrases is still only set once.
var StatusRules = []Rule{
	StatusRule(GeoNotConverged, "MAXIMUM NUMBER OF OPTIMIZATION STEPS REACHED"),
	StatusRule(UKSNeeded,
		"Use the LSD option for an odd number of electrons",
		"odd number of electrons",
	),
	StatusRule(Aborted, "ABORT"),
}

// Sections is the catalogue of optional sections. natoms and init_nel
// come first since spin_density and eigen read them.
var Sections = NewCatalogue(
	ScalarRule("natoms", "natoms", natomsLine, toInt, ""),
	initNelRule(),
	scfParametersRule(),
	spinDensityRule(),
	eigenRule(),
	kpointRule(),
	motionRule(),
)

var DefaultScanner = &Scanner{
	Base:     BaseRules,
	Sections: Sections,
	Statuses: StatusRules,
}

// Parser profiles
var (
	BaseSections     = []string{}
	AdvancedSections = []string{
		"spin_density",
		"natoms",
		"scf_parameters",
		"init_nel",
		"eigen",
		"kpoint_data",
		"motion_info",
	}
)

// Profile returns a copy of the section list of the named profile
func Profile(name string) ([]string, error) {
	switch name {
	case "", "base":
		return slices.Clone(BaseSections), nil
	case "advanced":
		return slices.Clone(AdvancedSections), nil
	default:
		return nil, fmt.Errorf("unknown parser profile %q", name)
	}
}
