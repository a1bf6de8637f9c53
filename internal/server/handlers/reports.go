package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/canopyhq/canopy/internal/errors"
)

// Reports serves report JSON files from a directory.
type Reports struct {
	dir string
}

// NewReports creates a Reports handler over dir.
func NewReports(dir string) *Reports {
	return &Reports{dir: dir}
}

// ReportInfo describes one available report file.
type ReportInfo struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// List returns the available report files, newest first.
func (h *Reports) List(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, []ReportInfo{})
			return
		}
		apperrors.WriteHTTPError(w, http.StatusInternalServerError, apperrors.CodeInternal,
			"failed to read report directory", nil)
		return
	}

	infos := make([]ReportInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, ReportInfo{
			Name:       entry.Name(),
			SizeBytes:  fi.Size(),
			ModifiedAt: fi.ModTime().UTC(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ModifiedAt.After(infos[j].ModifiedAt)
	})
	writeJSON(w, http.StatusOK, infos)
}

// Get streams one report file by name.
func (h *Reports) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	// Reject anything that could escape the report directory.
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
		apperrors.WriteHTTPError(w, http.StatusNotFound, apperrors.CodeNotFound,
			"report not found", map[string]any{"name": name})
		return
	}

	data, err := os.ReadFile(filepath.Join(h.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			apperrors.WriteHTTPError(w, http.StatusNotFound, apperrors.CodeNotFound,
				"report not found", map[string]any{"name": name})
			return
		}
		apperrors.WriteHTTPError(w, http.StatusInternalServerError, apperrors.CodeInternal,
			"failed to read report", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
