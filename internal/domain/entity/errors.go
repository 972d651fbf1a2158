package entity

import "errors"

var (
	// Envelope errors
	ErrInvalidDeviceID  = errors.New("invalid device id")
	ErrInvalidFleetID   = errors.New("invalid fleet id")
	ErrEmptyCommandText = errors.New("empty natural language command text")

	// Intent errors
	ErrUnknownTool      = errors.New("tool name not in known-tools set")
	ErrEmptyReplyText   = errors.New("reply action requires a non-empty message")
	ErrInvalidConfidence = errors.New("confidence must be in [0,1]")

	// Response errors
	ErrCompletedNeedsNoError = errors.New("status Completed must not carry an error")
	ErrFailedNeedsError      = errors.New("status Failed must carry an error")

	// Shadow errors
	ErrUnknownShadowName = errors.New("unknown shadow name")
)
