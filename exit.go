package main

import (
	"errors"
	"fmt"

	"bwestbro.com/cp2k/cp2k"
)

// Exit statuses of cp2kparse
const (
	ExitNormal               = 0
	ExitFailure              = 1
	ExitOutputMissing        = 10
	ExitOutputUnreadable     = 11
	ExitTrajectoryUnreadable = 12
	ExitMalformedSection     = 13
	ExitGeoNotConverged      = 20
	ExitUKSNeeded            = 21
	ExitAborted              = 22
)

// ExitError carries the status cp2kparse should exit with
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Status maps the result of parsing one directory to an exit status.
// Errors take precedence over the outcome.
func Status(outcome cp2k.Outcome, err error) int {
	switch {
	case err == nil:
	case errors.Is(err, cp2k.ErrOutputMissing):
		return ExitOutputMissing
	case errors.Is(err, cp2k.ErrOutputUnreadable):
		return ExitOutputUnreadable
	case errors.Is(err, cp2k.ErrTrajectoryUnreadable):
		return ExitTrajectoryUnreadable
	case errors.Is(err, cp2k.ErrMalformedSection):
		return ExitMalformedSection
	default:
		return ExitFailure
	}
	switch outcome {
	case cp2k.GeometryNotConverged:
		return ExitGeoNotConverged
	case cp2k.SpinTreatmentRequired:
		return ExitUKSNeeded
	case cp2k.RunAborted:
		return ExitAborted
	}
	return ExitNormal
}

// severity ranks statuses so that any error outranks any non-normal
// outcome
func severity(status int) int {
	switch {
	case status == ExitNormal:
		return 0
	case status >= ExitGeoNotConverged:
		return status - ExitGeoNotConverged + 1
	case status == ExitFailure:
		return 100
	}
	return status + 10
}

// Worst returns the most severe status in records, as an ExitError, or
// nil if every run was normal
func Worst(records []Record) error {
	var worst *Record
	for i := range records {
		if worst == nil || severity(records[i].Status) > severity(worst.Status) {
			worst = &records[i]
		}
	}
	if worst == nil || worst.Status == ExitNormal {
		return nil
	}
	msg := worst.Error
	if msg == "" {
		msg = worst.Outcome
	}
	return &ExitError{
		Code:    worst.Status,
		Message: fmt.Sprintf("%s: %s", worst.Dir, msg),
	}
}
