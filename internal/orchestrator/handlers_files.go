package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/imagerender"
	"github.com/local/pdfdesk/internal/pdfengine"
)

// errTooLarge marks an upload over MaxUploadBytes.
var errTooLarge = errors.New("upload too large")

// readUploads parses a multipart body and reads every file under field.
func (o *Orchestrator) readUploads(w http.ResponseWriter, r *http.Request, field string) ([]document.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, o.deps.MaxUploadBytes*8+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "upload exceeds size limit", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		jsonError(w, fmt.Sprintf("%s is required", field), http.StatusBadRequest)
		return nil, false
	}
	uploads := make([]document.Upload, 0, len(headers))
	for _, h := range headers {
		data, err := o.readPart(h)
		if errors.Is(err, errTooLarge) {
			jsonError(w, fmt.Sprintf("%s exceeds max size (%d bytes)", h.Filename, o.deps.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		if err != nil {
			jsonError(w, "failed to read "+h.Filename, http.StatusBadRequest)
			return nil, false
		}
		uploads = append(uploads, document.Upload{Name: filepath.Base(h.Filename), Data: data})
	}
	return uploads, true
}

func (o *Orchestrator) readPart(h *multipart.FileHeader) ([]byte, error) {
	if h.Size > o.deps.MaxUploadBytes {
		return nil, errTooLarge
	}
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, o.deps.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > o.deps.MaxUploadBytes {
		return nil, errTooLarge
	}
	return data, nil
}

func (o *Orchestrator) handleUpload(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	uploads, ok := o.readUploads(w, r, "files")
	if !ok {
		return
	}
	sum, err := ws.Load(r.Context(), uploads)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (o *Orchestrator) handlePreview(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		jsonError(w, "page must be a number", http.StatusBadRequest)
		return
	}
	prev, err := ws.Preview(r.Context(), chi.URLParam(r, "docID"), page)
	if err != nil {
		var renderErr *imagerender.PageRenderError
		switch {
		case errors.Is(err, imagerender.ErrPageRange):
			jsonError(w, err.Error(), http.StatusNotFound)
		case errors.As(err, &renderErr) && prev != nil:
			writeJSON(w, http.StatusAccepted, map[string]any{"preview": prev, "error": err.Error()})
		default:
			writeError(w, err, http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", prev.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Length", strconv.Itoa(len(prev.Data)))
	w.Write(prev.Data)
}

func (o *Orchestrator) handleImagesToPDF(w http.ResponseWriter, r *http.Request) {
	uploads, ok := o.readUploads(w, r, "images")
	if !ok {
		return
	}
	opts, err := pdfengine.ParseImageOptions(r.FormValue("page_size"), r.FormValue("orientation"), r.FormValue("margin"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	rotations := r.MultipartForm.Value["rotation"]
	images := make([]pdfengine.ImageInput, len(uploads))
	for i, up := range uploads {
		images[i] = pdfengine.ImageInput{Name: up.Name, Data: up.Data}
		if i < len(rotations) && rotations[i] != "" {
			deg, err := strconv.Atoi(rotations[i])
			if err != nil || deg%90 != 0 {
				jsonError(w, fmt.Sprintf("rotation %q must be a multiple of 90", rotations[i]), http.StatusBadRequest)
				return
			}
			images[i].Rotation = deg
		}
	}
	jobID, err := o.deps.Workspaces.ImagesToPDF(r.Context(), images, opts)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	acceptedJob(w, jobID)
}
