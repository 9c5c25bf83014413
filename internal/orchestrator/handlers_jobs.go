package orchestrator

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/local/pdfdesk/internal/imagerender"
)

func (o *Orchestrator) handleMerge(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	jobID, err := ws.Merge(r.Context())
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	acceptedJob(w, jobID)
}

func (o *Orchestrator) handleSplit(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	var req struct {
		MergeRanges bool `json:"merge_ranges"`
	}
	if err := decode(r, &req); err != nil {
		jsonError(w, "invalid json", http.StatusBadRequest)
		return
	}
	jobID, err := ws.Split(r.Context(), req.MergeRanges)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	acceptedJob(w, jobID)
}

func (o *Orchestrator) handleExportImages(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	settings := o.deps.ExportDefaults
	if err := decode(r, &settings); err != nil {
		jsonError(w, "invalid json", http.StatusBadRequest)
		return
	}
	if _, err := imagerender.ParseFormat(string(settings.Format)); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jobID, err := ws.ExportImages(r.Context(), settings)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	acceptedJob(w, jobID)
}

func (o *Orchestrator) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	st, ok, err := o.deps.Runner.Status(r.Context(), id)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":     id,
		"status":     st.Status,
		"progress":   st.Progress,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
		"metadata":   st.Metadata,
	})
}

func (o *Orchestrator) handleDownload(w http.ResponseWriter, r *http.Request) {
	a, err := o.deps.Artifacts.Take(chi.URLParam(r, "artifactID"))
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Write(a.Data)
}
