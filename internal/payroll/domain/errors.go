package domain

import "errors"

var (
	// ErrDataLoad is returned when any of the run inputs cannot be read
	ErrDataLoad = errors.New("failed to load payroll data")
	// ErrUnsupportedJurisdiction is returned when no calculator is registered for a country
	ErrUnsupportedJurisdiction = errors.New("unsupported jurisdiction")
	// ErrMissingSystemElement is returned when the element catalog lacks a required system element
	ErrMissingSystemElement = errors.New("missing system pay element")
	// ErrPersistence is returned when a run could not be fully written
	ErrPersistence = errors.New("persistence failure")
	// ErrTransition is returned when a status change could not be completed
	ErrTransition = errors.New("payroll run transition failed")
)
