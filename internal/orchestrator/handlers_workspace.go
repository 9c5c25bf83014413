package orchestrator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/notify"
	"github.com/local/pdfdesk/internal/workspace"
)

func (o *Orchestrator) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := o.deps.Workspaces.Get(chi.URLParam(r, "wsID"))
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return nil, false
	}
	return ws, true
}

func (o *Orchestrator) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tool string `json:"tool"`
	}
	if err := decode(r, &req); err != nil {
		jsonError(w, "invalid json", http.StatusBadRequest)
		return
	}
	tool, err := workspace.ParseTool(req.Tool)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws := o.deps.Workspaces.Create(tool)
	writeJSON(w, http.StatusCreated, ws.Snapshot())
}

func (o *Orchestrator) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (o *Orchestrator) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := o.deps.Workspaces.Delete(chi.URLParam(r, "wsID")); err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (o *Orchestrator) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	var after uint64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			jsonError(w, "after must be a sequence number", http.StatusBadRequest)
			return
		}
		after = n
	}
	msgs := ws.Notifications(after)
	if msgs == nil {
		msgs = []notify.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": msgs})
}

func (o *Orchestrator) handleClear(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Clear(); err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (o *Orchestrator) handleRemove(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Remove(chi.URLParam(r, "docID")); err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (o *Orchestrator) handleMove(w http.ResponseWriter, r *http.Request) {
	ws, ok := o.workspace(w, r)
	if !ok {
		return
	}
	var req struct {
		To *int `json:"to"`
	}
	if err := decode(r, &req); err != nil || req.To == nil {
		jsonError(w, "body must be {\"to\": index}", http.StatusBadRequest)
		return
	}
	snap, err := ws.Move(chi.URLParam(r, "docID"), *req.To)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// docEdit changes one document and returns its new view.
type docEdit func(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error)

// editHandler serves a docEdit, answering with the document view.
func (o *Orchestrator) editHandler(edit docEdit) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := o.workspace(w, r)
		if !ok {
			return
		}
		view, err := edit(r, ws, chi.URLParam(r, "docID"))
		if err != nil {
			var syntax *json.SyntaxError
			if errors.As(err, &syntax) {
				jsonError(w, "invalid json", http.StatusBadRequest)
				return
			}
			writeError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func toggle(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error) {
	var req struct {
		Pages []int `json:"pages"`
		Force *bool `json:"force"`
	}
	if err := decode(r, &req); err != nil {
		return document.View{}, err
	}
	return ws.TogglePages(docID, req.Pages, req.Force)
}

func selectAll(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error) {
	return ws.SelectAll(docID)
}

func deselectAll(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error) {
	return ws.DeselectAll(docID)
}

func setCursor(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error) {
	var req struct {
		Page int `json:"page"`
	}
	if err := decode(r, &req); err != nil {
		return document.View{}, err
	}
	return ws.SetCursor(docID, req.Page)
}

func addRange(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error) {
	var req struct {
		Spec string `json:"spec"`
	}
	if err := decode(r, &req); err != nil {
		return document.View{}, err
	}
	if strings.TrimSpace(req.Spec) != "" {
		return ws.ReplaceRanges(docID, req.Spec)
	}
	return ws.AddRange(docID)
}

func updateRange(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error) {
	i, err := rangeIndex(r)
	if err != nil {
		return document.View{}, err
	}
	var req struct {
		Field string `json:"field"`
		Value *int   `json:"value"`
	}
	if err := decode(r, &req); err != nil {
		return document.View{}, err
	}
	return ws.UpdateRange(docID, i, req.Field, req.Value)
}

func removeRange(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error) {
	i, err := rangeIndex(r)
	if err != nil {
		return document.View{}, err
	}
	return ws.RemoveRange(docID, i)
}

func setMode(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decode(r, &req); err != nil {
		return document.View{}, err
	}
	return ws.SetMode(docID, req.Mode)
}

// setFixedCount accepts the value as typed, string or number.
func setFixedCount(r *http.Request, ws *workspace.Workspace, docID string) (document.View, error) {
	var req struct {
		Value  json.RawMessage `json:"value"`
		Commit bool            `json:"commit"`
	}
	if err := decode(r, &req); err != nil {
		return document.View{}, err
	}
	raw := strings.Trim(string(req.Value), `"`)
	return ws.SetFixedCount(docID, raw, req.Commit)
}

func rangeIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, document.ErrRangeIndex
	}
	return i, nil
}
