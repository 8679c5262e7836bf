package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jkleinau/VRP/internal/metrics"
	"github.com/jkleinau/VRP/internal/model"
	"github.com/jkleinau/VRP/internal/preset"
)

func (s *Server) countMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ScenarioMutations.WithLabelValues(op, result).Inc()
}

// ScenarioHandler handles GET /v1/scenario
func (s *Server) ScenarioHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.Scenario.Snapshot())
}

// NodesHandler handles POST/DELETE /v1/scenario/nodes
func (s *Server) NodesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		id := s.Scenario.AddNode(model.Position{X: req.X, Y: req.Y})
		s.countMutation("node.add", nil)
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})
	case http.MethodDelete:
		s.Scenario.RemoveAllCustomers()
		s.countMutation("node.clear", nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// NodeByIDHandler handles /v1/scenario/nodes/{id} and its
// time-window and skills subresources.
func (s *Server) NodeByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/scenario/nodes/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing node id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	rawID, err := strconv.Atoi(parts[0])
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid node id", parts[0], r.URL.Path)
		return
	}
	id := model.NodeID(rawID)

	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		err := s.Scenario.RemoveNode(id)
		s.countMutation("node.remove", err)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch parts[1] {
	case "time-window":
		switch r.Method {
		case http.MethodPut:
			var req struct {
				Start int64 `json:"start"`
				End   int64 `json:"end"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
				return
			}
			err := s.Scenario.SetNodeTimeWindow(id, req.Start, req.End)
			s.countMutation("node.window.set", err)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			err := s.Scenario.ClearNodeTimeWindow(id)
			s.countMutation("node.window.clear", err)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "skills":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Skills []string `json:"skills"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		err := s.Scenario.SetNodeRequiredSkills(id, req.Skills)
		s.countMutation("node.skills.set", err)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown node subresource", r.URL.Path)
	}
}

// SkillsHandler handles POST /v1/scenario/skills
func (s *Server) SkillsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	err := s.Scenario.RegisterSkill(req.Token)
	s.countMutation("skill.register", err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SkillByTokenHandler handles DELETE /v1/scenario/skills/{token}
func (s *Server) SkillByTokenHandler(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/v1/scenario/skills/")
	if token == r.URL.Path || token == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing skill token", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	err := s.Scenario.UnregisterSkill(token)
	s.countMutation("skill.unregister", err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VehiclesHandler handles PUT /v1/scenario/vehicles
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	err := s.Scenario.SetVehicleCount(req.Count)
	s.countMutation("vehicle.count", err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VehicleByIndexHandler handles PUT /v1/scenario/vehicles/{index}/skills
func (s *Server) VehicleByIndexHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/scenario/vehicles/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "skills" {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown vehicle subresource", r.URL.Path)
		return
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid vehicle index", parts[0], r.URL.Path)
		return
	}
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Skills []string `json:"skills"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	err = s.Scenario.SetVehicleSkills(index, req.Skills)
	s.countMutation("vehicle.skills", err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PresetByNameHandler handles PUT/POST (save) and GET (load+import) of
// /v1/presets/{name}.
func (s *Server) PresetByNameHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/presets/")
	if name == r.URL.Path || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		writeProblem(w, http.StatusBadRequest, "Invalid preset name", name, r.URL.Path)
		return
	}
	path := filepath.Join(s.Cfg.PresetDir, name+".json")
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		if err := os.MkdirAll(s.Cfg.PresetDir, 0o755); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save preset failed", err.Error(), r.URL.Path)
			return
		}
		err := preset.SaveFile(path, s.Scenario.Snapshot())
		s.countMutation("preset.save", err)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save preset failed", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		snap, err := preset.LoadFile(path)
		if err != nil {
			s.countMutation("preset.load", err)
			if errors.Is(err, os.ErrNotExist) {
				writeProblem(w, http.StatusNotFound, "Preset not found", name, r.URL.Path)
				return
			}
			writeDomainError(w, r, err)
			return
		}
		err = s.Scenario.Import(snap)
		s.countMutation("preset.load", err)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.Scenario.Snapshot())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// HealthHandler handles GET /healthz
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler handles GET /readyz
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"pendingWebhooks": s.Queue.PendingCount(),
	})
}
