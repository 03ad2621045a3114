package domain

import "errors"

var (
	ErrInvalidRecord     = errors.New("invalid notification record")
	ErrContractViolation = errors.New("notification api contract violation")
	ErrUnexpectedStatus  = errors.New("unexpected status from notification api")
	ErrMalformedBaseURL  = errors.New("malformed api base url")
)
