// Package batch coordinates recompute passes over a collection of images.
//
// The Coordinator owns the tracked images and the global compositing
// parameters. Opacity changes are debounced; background changes and
// ingestion trigger a pass immediately. At most one pass runs at a time: a
// pass requested while another is in flight is not queued, it only marks
// the coordinator dirty so that a single follow-up pass runs with the
// latest parameters once the current one settles. A pass whose parameters
// changed before it settled writes nothing back.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/backdrop/internal/colour"
	"github.com/jmylchreest/backdrop/internal/compositor"
	imageloader "github.com/jmylchreest/backdrop/internal/image"
	"github.com/jmylchreest/backdrop/internal/preview"
	"github.com/jmylchreest/backdrop/internal/security"
)

var (
	// ErrNotFound is returned for an unknown image id.
	ErrNotFound = errors.New("image not found")

	// ErrClosed is returned once the coordinator has been closed.
	ErrClosed = errors.New("coordinator closed")
)

// Config configures a Coordinator. Zero values select defaults.
type Config struct {
	Compositor    Compositor
	Previews      *preview.Registry
	Logger        hclog.Logger
	Clock         Clock
	Debounce      time.Duration
	ExportSpacing time.Duration
	Workers       int

	// Params are the initial parameters. Nil means DefaultParams; an empty
	// Background within a non-nil Params means DefaultBackground.
	Params *Params

	// OnPass is called after every pass settles, outside the coordinator lock.
	OnPass func(PassReport)
}

// Coordinator owns the tracked image collection and global parameters.
type Coordinator struct {
	comp     Compositor
	previews *preview.Registry
	log      hclog.Logger
	clock    Clock
	onPass   func(PassReport)

	debounce      time.Duration
	exportSpacing time.Duration
	workers       int

	mu     sync.Mutex
	images map[string]*Image
	order  []string
	params Params

	// generation increments whenever committed params change.
	generation uint64

	displayOpacity int
	pendingOpacity int
	timer          Timer
	timerSeq       uint64

	running  bool
	dirty    bool
	dirtyAll bool
	// idle is non-nil while a pass is running and closed when none is.
	idle    chan struct{}
	passes  int
	lastErr error
	closed  bool
}

// New creates a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	params := DefaultParams()
	if cfg.Params != nil {
		params = *cfg.Params
	}
	if params.Background == "" {
		params.Background = DefaultBackground
	}
	bg, err := colour.NormaliseHex(params.Background)
	if err != nil {
		return nil, err
	}
	params.Background = bg
	params.Opacity = security.ClampInt(params.Opacity, compositor.MinOpacity, compositor.MaxOpacity)

	c := &Coordinator{
		comp:           cfg.Compositor,
		previews:       cfg.Previews,
		log:            cfg.Logger,
		clock:          cfg.Clock,
		onPass:         cfg.OnPass,
		debounce:       cfg.Debounce,
		exportSpacing:  cfg.ExportSpacing,
		workers:        cfg.Workers,
		images:         make(map[string]*Image),
		params:         params,
		displayOpacity: params.Opacity,
	}

	if c.comp == nil {
		c.comp = compositor.New(0)
	}
	if c.previews == nil {
		c.previews = preview.NewRegistry()
	}
	if c.log == nil {
		c.log = hclog.NewNullLogger()
	}
	if c.clock == nil {
		c.clock = RealClock()
	}
	if c.debounce <= 0 {
		c.debounce = DefaultDebounce
	}
	if c.exportSpacing < 0 {
		c.exportSpacing = 0
	}
	if c.workers <= 0 {
		c.workers = runtime.NumCPU()
	}

	return c, nil
}

// Previews returns the registry holding the coordinator's preview handles.
func (c *Coordinator) Previews() *preview.Registry {
	return c.previews
}

// Params returns the committed parameters.
func (c *Coordinator) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// DisplayOpacity returns the most recently requested opacity, which may not
// have been committed yet.
func (c *Coordinator) DisplayOpacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayOpacity
}

// State returns the current recompute state. A pass in flight takes
// precedence over a waiting opacity change; see HasPending.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Coordinator) stateLocked() State {
	switch {
	case c.running:
		return StateRunning
	case c.timer != nil:
		return StatePending
	default:
		return StateIdle
	}
}

// HasPending reports whether an opacity change is waiting to commit.
func (c *Coordinator) HasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Passes returns the number of passes started so far.
func (c *Coordinator) Passes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passes
}

// LastError returns the error of the most recent pass that failed as a whole.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Images returns snapshots of all tracked images in ingestion order.
func (c *Coordinator) Images() []Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Image, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.images[id])
	}
	return out
}

// Get returns a snapshot of the image with the given id.
func (c *Coordinator) Get(id string) (Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, ok := c.images[id]
	if !ok {
		return Image{}, false
	}
	return *img, true
}

// Ingest adds every acceptable upload and runs one pass over the new
// images with the current parameters. Non-image payloads and payloads
// that cannot be decoded are skipped without affecting the rest.
func (c *Coordinator) Ingest(ctx context.Context, uploads []Upload) (IngestReport, error) {
	var report IngestReport
	var accepted []*Image

	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := security.SanitizeFilename(u.Name)
		mediaType := imageloader.DetectMIME(u.MIME, name, u.Data)
		if !imageloader.IsImageMIME(mediaType) {
			c.log.Debug("skipping upload", "name", name, "mime", mediaType)
			report.Skipped = append(report.Skipped, Skipped{Name: name, Reason: "not an image: " + mediaType})
			continue
		}
		if _, err := imageloader.Probe(u.Data); err != nil {
			c.log.Debug("skipping upload", "name", name, "error", err)
			report.Skipped = append(report.Skipped, Skipped{Name: name, Reason: err.Error()})
			continue
		}

		accepted = append(accepted, &Image{
			ID:     uuid.Must(uuid.NewV7()).String(),
			Name:   name,
			MIME:   mediaType,
			Source: u.Data,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return report, ErrClosed
	}

	ids := make([]string, 0, len(accepted))
	for _, img := range accepted {
		img.SourcePreview = c.previews.Acquire(img.MIME, img.Source)
		c.images[img.ID] = img
		c.order = append(c.order, img.ID)
		ids = append(ids, img.ID)
	}
	report.Accepted = ids

	if len(ids) > 0 {
		c.log.Info("ingested images", "accepted", len(ids), "skipped", len(report.Skipped))
		c.requestPassLocked(ids, false)
	}

	return report, nil
}

// SetOpacity records a new opacity immediately for display and commits it
// once no further SetOpacity call arrives within the debounce window.
// Values outside [0,100] are clamped.
func (c *Coordinator) SetOpacity(value int) {
	value = security.ClampInt(value, compositor.MinOpacity, compositor.MaxOpacity)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.displayOpacity = value
	c.pendingOpacity = value
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerSeq++
	seq := c.timerSeq
	c.timer = c.clock.AfterFunc(c.debounce, func() { c.commitOpacity(seq) })
}

// Flush commits a waiting opacity change immediately.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	seq := c.timerSeq
	pending := c.timer != nil
	c.mu.Unlock()

	if pending {
		c.commitOpacity(seq)
	}
}

func (c *Coordinator) commitOpacity(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer SetOpacity rescheduled the timer, or it was flushed already.
	if seq != c.timerSeq || c.timer == nil || c.closed {
		return
	}
	c.timer.Stop()
	c.timer = nil

	if c.params.Opacity != c.pendingOpacity {
		c.params.Opacity = c.pendingOpacity
		c.generation++
	}
	c.log.Debug("opacity committed", "opacity", c.params.Opacity)
	c.requestPassLocked(nil, true)
}

// SetBackground validates and applies a new background colour and starts a
// pass over the whole collection. An invalid colour leaves state unchanged.
func (c *Coordinator) SetBackground(value string) error {
	bg, err := colour.NormaliseHex(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.params.Background != bg {
		c.params.Background = bg
		c.generation++
	}
	c.log.Debug("background committed", "background", bg)
	c.requestPassLocked(nil, true)
	return nil
}

// Remove drops an image and releases its preview resources. A pass still
// computing the image's output discards that result when it settles.
func (c *Coordinator) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, ok := c.images[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(c.images, id)
	c.order = slices.DeleteFunc(c.order, func(v string) bool { return v == id })

	c.releaseLocked(img.SourcePreview)
	c.releaseLocked(img.DerivedPreview)
	c.log.Debug("removed image", "id", id, "name", img.Name)
	return nil
}

// ExportAll hands every flattened image to saver in ingestion order,
// pausing between items. It returns the number of images saved.
func (c *Coordinator) ExportAll(ctx context.Context, saver Saver) (int, error) {
	c.mu.Lock()
	var items []Image
	for _, id := range c.order {
		if img := c.images[id]; img.HasOutput() {
			items = append(items, *img)
		}
	}
	c.mu.Unlock()

	var errs []error
	saved := 0
	for i, img := range items {
		if i > 0 && c.exportSpacing > 0 {
			if err := sleep(ctx, c.exportSpacing); err != nil {
				return saved, errors.Join(append(errs, err)...)
			}
		}
		if err := ctx.Err(); err != nil {
			return saved, errors.Join(append(errs, err)...)
		}

		if err := saver.Save(ctx, img.ExportName(), img.Derived); err != nil {
			c.log.Warn("export failed", "name", img.ExportName(), "error", err)
			errs = append(errs, fmt.Errorf("failed to save %s: %w", img.ExportName(), err))
			continue
		}
		saved++
	}

	c.log.Info("export complete", "saved", saved, "failed", len(errs))
	return saved, errors.Join(errs...)
}

// WaitIdle blocks until no pass is running. A waiting opacity change does
// not count as running; call Flush first to include it.
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any waiting opacity change and waits for the running pass.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	return c.WaitIdle(ctx)
}

func (c *Coordinator) releaseLocked(h preview.Handle) {
	if h == "" {
		return
	}
	if err := c.previews.Release(h); err != nil {
		c.log.Warn("failed to release preview", "handle", h, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
