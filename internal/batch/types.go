package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/backdrop/internal/colour"
	"github.com/jmylchreest/backdrop/internal/preview"
)

const (
	// DefaultBackground is the background colour used until one is set.
	DefaultBackground = "#ffffff"

	// DefaultOpacity is the opacity percentage used until one is set.
	DefaultOpacity = 100

	// DefaultDebounce is the quiet window before an opacity change commits.
	DefaultDebounce = 150 * time.Millisecond

	// DefaultExportSpacing separates consecutive saves during ExportAll.
	DefaultExportSpacing = 100 * time.Millisecond

	// ExportPrefix is prepended to the original file name on export.
	ExportPrefix = "processed-"
)

// State is the coordinator's recompute state.
type State int

const (
	// StateIdle means no pass is running and no opacity change is waiting.
	StateIdle State = iota
	// StatePending means an opacity change is waiting out its debounce window.
	StatePending
	// StateRunning means a recompute pass is in flight.
	StateRunning
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Params are the global compositing parameters shared by every image.
type Params struct {
	// Background is a normalised "#rrggbb" colour.
	Background string `json:"background"`
	// Opacity is a percentage in [0,100].
	Opacity int `json:"opacity"`
}

// DefaultParams returns the parameters a new coordinator starts with.
func DefaultParams() Params {
	return Params{Background: DefaultBackground, Opacity: DefaultOpacity}
}

// Upload is an image payload offered for ingestion.
type Upload struct {
	Name string
	// MIME is the declared media type. When empty it is detected from the payload.
	MIME string
	Data []byte
}

// Image is a tracked image. Values returned by the coordinator are snapshots.
type Image struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	MIME string `json:"mime"`

	// Source is the original payload. It is never modified after ingestion.
	Source        []byte         `json:"-"`
	SourcePreview preview.Handle `json:"source_preview"`

	// Derived is the flattened PNG, or nil until the first successful pass.
	Derived        []byte         `json:"-"`
	DerivedPreview preview.Handle `json:"derived_preview,omitempty"`

	// Opacity and Background are the parameters Derived was produced with.
	Opacity    int    `json:"opacity"`
	Background string `json:"background,omitempty"`

	// Error holds the last per-image compositing failure, if any.
	Error string `json:"error,omitempty"`
}

// HasOutput reports whether a flattened image is available.
func (img Image) HasOutput() bool {
	return img.Derived != nil
}

// ExportName is the file name used when the image is exported.
func (img Image) ExportName() string {
	return ExportPrefix + img.Name
}

// ImageError attributes a pass failure to the image that caused it, so the
// image can be removed.
type ImageError struct {
	ID   string
	Name string
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s (%s): %v", e.Name, e.ID, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// Skipped describes an upload that was not ingested.
type Skipped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// IngestReport summarises an Ingest call.
type IngestReport struct {
	Accepted []string  `json:"accepted"`
	Skipped  []Skipped `json:"skipped,omitempty"`
}

// PassReport describes a completed recompute pass.
type PassReport struct {
	Sequence  int
	Params    Params
	Targets   int
	Written   int
	Failed    int
	Discarded bool
	Err       error
	Duration  time.Duration
}

// Compositor flattens an encoded image onto a background colour.
type Compositor interface {
	Flatten(data []byte, bg colour.RGB, opacity int) ([]byte, error)
}

// Saver receives finished images during export.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, name string, data []byte) error

// Save calls f(ctx, name, data).
func (f SaverFunc) Save(ctx context.Context, name string, data []byte) error {
	return f(ctx, name, data)
}
