package web

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/foodwatch/internal/category"
	"github.com/vbonduro/foodwatch/internal/lookup"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, "load dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.Stats(r.Context())
	if err != nil {
		s.fail(w, r, "load stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	entries, err := s.service.RecentHistory(r.Context(), limit)
	if err != nil {
		s.fail(w, r, "load history", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.AlertHistory(r.Context())
	if err != nil {
		s.fail(w, r, "load alert history", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleRunAlerts triggers an alert pass immediately. A pass already in
// flight is joined rather than repeated.
func (s *Server) handleRunAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alerts.RunPass(r.Context()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	exp, err := s.service.Export(r.Context())
	if err != nil {
		s.fail(w, r, "export", err)
		return
	}
	name := "foodwatch-export-" + exp.ExportedAt.Format("2006-01-02") + ".json"
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	key, err := s.service.Backup(r.Context())
	if err != nil {
		s.fail(w, r, "backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *Server) handleDownloadBackup(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	rc, contentType, err := s.service.OpenBackup(r.Context(), key)
	if err != nil {
		s.fail(w, r, "download backup", err)
		return
	}
	defer func() {
		if err := rc.Close(); err != nil {
			s.logger.Error("failed to close backup", "key", key, "error", err)
		}
	}()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+key+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("failed to stream backup", "key", key, "error", err)
	}
}

func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBackup(r.Context(), r.PathValue("key")); err != nil {
		s.fail(w, r, "delete backup", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Categories())
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	writeJSON(w, http.StatusOK, s.service.Classify(name, strings.TrimSpace(q.Get("brand"))))
}

type lookupResponse struct {
	*lookup.Product
	Category category.Rule `json:"category"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	p, err := s.lookup.Lookup(r.Context(), r.PathValue("barcode"))
	if err != nil {
		s.fail(w, r, "barcode lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Product: p, Category: s.service.Classify(p.Name, p.Brand)})
}
