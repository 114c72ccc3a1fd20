package main

import (
	"errors"
	"fmt"
	"testing"

	"bwestbro.com/cp2k/cp2k"
)

func TestStatus(t *testing.T) {
	malformed := &cp2k.SectionError{Section: "energy", Err: errors.New("bad")}
	tests := []struct {
		outcome cp2k.Outcome
		err     error
		want    int
	}{
		{cp2k.Normal, nil, ExitNormal},
		{cp2k.GeometryNotConverged, nil, ExitGeoNotConverged},
		{cp2k.SpinTreatmentRequired, nil, ExitUKSNeeded},
		{cp2k.RunAborted, nil, ExitAborted},
		{cp2k.Normal, fmt.Errorf("%w: aiida.out", cp2k.ErrOutputMissing), ExitOutputMissing},
		{cp2k.Normal, cp2k.ErrOutputUnreadable, ExitOutputUnreadable},
		{cp2k.RunAborted, cp2k.ErrTrajectoryUnreadable, ExitTrajectoryUnreadable},
		{cp2k.Normal, malformed, ExitMalformedSection},
		{cp2k.Normal, errors.New("other"), ExitFailure},
		{cp2k.Normal, cp2k.ErrTrajectoryMissing, ExitFailure},
	}
	for _, test := range tests {
		got := Status(test.outcome, test.err)
		if got != test.want {
			t.Errorf("Status(%v, %v): got %v, wanted %v\n",
				test.outcome, test.err, got, test.want)
		}
	}
}

func TestWorst(t *testing.T) {
	tests := []struct {
		statuses []int
		want     int
	}{
		{nil, ExitNormal},
		{[]int{ExitNormal, ExitNormal}, ExitNormal},
		{[]int{ExitNormal, ExitAborted, ExitGeoNotConverged}, ExitAborted},
		{[]int{ExitAborted, ExitOutputMissing}, ExitOutputMissing},
		{[]int{ExitOutputMissing, ExitMalformedSection}, ExitMalformedSection},
		{[]int{ExitMalformedSection, ExitFailure}, ExitFailure},
	}
	for _, test := range tests {
		records := make([]Record, len(test.statuses))
		for i, s := range test.statuses {
			records[i] = Record{Dir: fmt.Sprint(i), Status: s}
		}
		err := Worst(records)
		got := ExitNormal
		var ee *ExitError
		if errors.As(err, &ee) {
			got = ee.Code
		} else if err != nil {
			t.Fatalf("unexpected error type %T", err)
		}
		if got != test.want {
			t.Errorf("%v: got %v, wanted %v\n", test.statuses, got, test.want)
		}
	}
}
