package scenario

import "errors"

// Mutation errors. Every failed mutation leaves the scenario unchanged.
var (
	ErrNotFound         = errors.New("node not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidRange     = errors.New("invalid range")
	ErrUnknownSkill     = errors.New("unknown skill")
	ErrSkillInUse       = errors.New("skill in use")
	ErrIndexOutOfRange  = errors.New("vehicle index out of range")
)
