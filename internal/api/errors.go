package api

import (
	"errors"
	"net/http"

	"github.com/jkleinau/VRP/internal/orchestrate"
	"github.com/jkleinau/VRP/internal/preset"
	"github.com/jkleinau/VRP/internal/scenario"
	"github.com/jkleinau/VRP/internal/validate"
)

// statusFor maps domain sentinel errors to HTTP status and title.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, scenario.ErrNotFound):
		return http.StatusNotFound, "Node not found"
	case errors.Is(err, scenario.ErrIndexOutOfRange):
		return http.StatusNotFound, "Vehicle not found"
	case errors.Is(err, scenario.ErrInvalidRange):
		return http.StatusBadRequest, "Invalid value"
	case errors.Is(err, scenario.ErrInvalidOperation):
		return http.StatusUnprocessableEntity, "Invalid operation"
	case errors.Is(err, scenario.ErrUnknownSkill):
		return http.StatusUnprocessableEntity, "Unknown skill"
	case errors.Is(err, scenario.ErrSkillInUse):
		return http.StatusConflict, "Skill in use"
	case errors.Is(err, validate.ErrNoCompatibleVehicle), errors.Is(err, validate.ErrNoVehicles):
		return http.StatusUnprocessableEntity, "Scenario not solvable"
	case errors.Is(err, orchestrate.ErrAlreadyRunning):
		return http.StatusConflict, "Solve in progress"
	case errors.Is(err, orchestrate.ErrUnknownSolve):
		return http.StatusNotFound, "Solve not found"
	case errors.Is(err, preset.ErrMalformedPreset):
		return http.StatusBadRequest, "Malformed preset"
	}
	return http.StatusInternalServerError, "Internal error"
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := statusFor(err)
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}
