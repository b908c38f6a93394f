package batch

import (
	"errors"
	"sync"
	"time"

	"github.com/jmylchreest/backdrop/internal/colour"
	"github.com/jmylchreest/backdrop/internal/compositor"
)

// pass is one recompute over a fixed set of images under fixed params.
type pass struct {
	seq        int
	generation uint64
	params     Params
	bg         colour.RGB
	targets    []passTarget
	started    time.Time
}

type passTarget struct {
	id     string
	source []byte
}

type passResult struct {
	id   string
	data []byte
	err  error
}

// requestPassLocked starts a pass over ids (or over every image when all is
// set). While a pass is running the request is dropped and the coordinator
// is marked dirty instead.
func (c *Coordinator) requestPassLocked(ids []string, all bool) {
	if c.running {
		c.dirty = true
		c.dirtyAll = c.dirtyAll || all
		c.log.Trace("pass already running, request coalesced")
		return
	}

	if all {
		ids = c.order
	}
	c.startPassLocked(ids)
}

// startPassLocked snapshots the targets and params and launches the pass.
func (c *Coordinator) startPassLocked(ids []string) {
	if len(ids) == 0 {
		return
	}

	// Params.Background is validated on every write.
	bg := colour.MustParseHex(c.params.Background)
	p := &pass{
		generation: c.generation,
		params:     c.params,
		bg:         bg,
		started:    time.Now(),
	}
	for _, id := range ids {
		if img, ok := c.images[id]; ok {
			p.targets = append(p.targets, passTarget{id: id, source: img.Source})
		}
	}
	if len(p.targets) == 0 {
		return
	}

	c.passes++
	p.seq = c.passes
	c.running = true
	if c.idle == nil {
		c.idle = make(chan struct{})
	}

	c.log.Debug("pass started", "pass", p.seq, "images", len(p.targets),
		"opacity", p.params.Opacity, "background", p.params.Background)

	go c.runPass(p)
}

// runPass composites every target concurrently and then settles the pass.
func (c *Coordinator) runPass(p *pass) {
	results := make([]passResult, len(p.targets))
	sem := make(chan struct{}, c.workers)

	var wg sync.WaitGroup
	for i, target := range p.targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i].id = target.id
			if c.superseded(p) {
				return
			}
			results[i].data, results[i].err = c.comp.Flatten(target.source, p.bg, p.params.Opacity)
		}()
	}
	wg.Wait()

	c.finishPass(p, results)
}

func (c *Coordinator) superseded(p *pass) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation != p.generation
}

// finishPass writes results back atomically, unless the pass was superseded
// or failed as a whole, and starts a follow-up pass when one was requested
// while this one ran.
func (c *Coordinator) finishPass(p *pass, results []passResult) {
	report := PassReport{
		Sequence: p.seq,
		Params:   p.params,
		Targets:  len(p.targets),
		Duration: time.Since(p.started),
	}

	c.mu.Lock()

	var renderErr *compositor.RenderContextError
	for _, r := range results {
		if errors.As(r.err, &renderErr) {
			name := r.id
			if img, ok := c.images[r.id]; ok {
				name = img.Name
			}
			report.Err = &ImageError{ID: r.id, Name: name, Err: r.err}
			break
		}
	}

	switch {
	case report.Err != nil:
		c.lastErr = report.Err
		report.Discarded = true
		c.log.Error("pass failed", "pass", p.seq, "error", report.Err)
	case c.generation != p.generation:
		report.Discarded = true
		c.log.Debug("pass superseded, results discarded", "pass", p.seq)
	default:
		c.lastErr = nil
		for _, r := range results {
			img, ok := c.images[r.id]
			if !ok {
				// Removed while the pass was running.
				continue
			}
			if r.err != nil {
				report.Failed++
				img.Error = r.err.Error()
				c.log.Warn("failed to composite image", "id", r.id, "name", img.Name, "error", r.err)
				continue
			}

			c.releaseLocked(img.DerivedPreview)
			img.Derived = r.data
			img.DerivedPreview = c.previews.Acquire("image/png", r.data)
			img.Opacity = p.params.Opacity
			img.Background = p.params.Background
			img.Error = ""
			report.Written++
		}
		c.log.Debug("pass complete", "pass", p.seq, "written", report.Written,
			"failed", report.Failed, "duration", report.Duration)
	}

	c.running = false
	if c.dirty && !c.closed {
		all := c.dirtyAll
		c.dirty, c.dirtyAll = false, false
		if all {
			c.startPassLocked(c.order)
		} else {
			c.startPassLocked(c.staleLocked())
		}
	}
	var idle chan struct{}
	if !c.running {
		idle, c.idle = c.idle, nil
	}

	c.mu.Unlock()

	if c.onPass != nil {
		c.onPass(report)
	}
	if idle != nil {
		close(idle)
	}
}

// staleLocked returns images whose output does not match the committed params.
func (c *Coordinator) staleLocked() []string {
	var ids []string
	for _, id := range c.order {
		img := c.images[id]
		if img.Derived == nil || img.Opacity != c.params.Opacity || img.Background != c.params.Background {
			ids = append(ids, id)
		}
	}
	return ids
}
