package workspace

import "errors"

var (
	// ErrNotFound is returned for unknown or deleted workspaces.
	ErrNotFound = errors.New("workspace not found")
	// ErrClosed is returned by operations on a deleted workspace.
	ErrClosed = errors.New("workspace closed")
	// ErrBusy is returned when a workflow is already running in the workspace.
	ErrBusy = errors.New("an operation is already running in this workspace")
	// ErrWrongTool is returned for operations the workspace's tool does not offer.
	ErrWrongTool = errors.New("operation not available for this tool")
	// ErrNoDocuments is returned when a workflow starts without documents.
	ErrNoDocuments = errors.New("no documents loaded")
	// ErrNothingSelected is returned by Merge when no page is selected.
	ErrNothingSelected = errors.New("no pages selected")
	// ErrNoValidRanges is returned when every range is invalid.
	ErrNoValidRanges = errors.New("no valid page ranges")
)
