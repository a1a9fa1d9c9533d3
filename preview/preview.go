// Package preview plays an animated project by rendering frames on a
// background worker.
package preview

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/model"
	"github.com/32bitkid/minecursor/render"
)

// Jiffy is one .ani rate unit.
const Jiffy = time.Second / 60

// minDelay keeps a zero rate from spinning the worker.
const minDelay = Jiffy

type RenderFunc func(p *model.Project, frame int) (*image.NRGBA, error)

func renderPreview(p *model.Project, f int) (*image.NRGBA, error) {
	fr, err := render.RenderFrame(p, f, false)
	if err != nil {
		return nil, err
	}
	return fr.Image, nil
}

type Options struct {
	Render RenderFunc
}

// Animator delivers frames of the current project to a callback. The
// worker only reads the project; callers editing it must Invalidate.
type Animator struct {
	render  RenderFunc
	onFrame func(frame int, img *image.NRGBA)

	mu      sync.Mutex
	project *model.Project
	cache   map[int]*image.NRGBA
	worker  *worker
}

type worker struct {
	stop   atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an idle animator. onFrame is called from the worker
// goroutine and must not block for long.
func New(onFrame func(frame int, img *image.NRGBA), options ...Options) *Animator {
	a := &Animator{render: renderPreview, onFrame: onFrame, cache: map[int]*image.NRGBA{}}
	if len(options) > 0 && options[0].Render != nil {
		a.render = options[0].Render
	}
	return a
}

// Frame returns the rendered frame f of the current project, from the
// cache when possible.
func (a *Animator) Frame(f int) (*image.NRGBA, error) {
	a.mu.Lock()
	p := a.project
	img, ok := a.cache[f]
	a.mu.Unlock()
	if ok {
		return img, nil
	}
	if p == nil {
		return nil, nil
	}
	img, err := a.render(p, f)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	if a.project == p {
		a.cache[f] = img
	}
	a.mu.Unlock()
	return img, nil
}

// Invalidate drops cached frames after an edit.
func (a *Animator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = map[int]*image.NRGBA{}
}

// SetProject stops the running worker and shows p. A worker is started
// only for animated projects; a static project is delivered once.
func (a *Animator) SetProject(ctx context.Context, p *model.Project) {
	a.Stop()

	a.mu.Lock()
	a.project = p
	a.cache = map[int]*image.NRGBA{}
	a.mu.Unlock()
	if p == nil {
		return
	}

	if p.OutputFrameCount() < 2 {
		img, err := a.Frame(0)
		if err != nil {
			logx.Logger().Warn("preview frame failed", "project", p.ID, "err", err)
			return
		}
		a.onFrame(0, img)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &worker{cancel: cancel, done: make(chan struct{})}
	a.mu.Lock()
	a.worker = w
	a.mu.Unlock()
	go a.run(ctx, p, w)
}

// Stop signals the worker and waits for it to exit.
func (a *Animator) Stop() {
	a.mu.Lock()
	w := a.worker
	a.worker = nil
	a.mu.Unlock()
	if w == nil {
		return
	}
	w.stop.Store(true)
	w.cancel()
	<-w.done
}

// Running reports whether a worker is active.
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.worker == nil {
		return false
	}
	select {
	case <-a.worker.done:
		return false
	default:
		return true
	}
}

func (a *Animator) run(ctx context.Context, p *model.Project, w *worker) {
	defer close(w.done)
	defer w.cancel()
	log := logx.Logger().With("project", p.ID)

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for f := 0; ; f = (f + 1) % p.OutputFrameCount() {
		if w.stop.Load() {
			return
		}
		img, err := a.Frame(f)
		if err != nil {
			log.Warn("preview stopped", "frame", f, "err", err)
			return
		}
		if w.stop.Load() {
			return
		}
		a.onFrame(f, img)

		timer.Reset(delay(p, f))
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

func delay(p *model.Project, f int) time.Duration {
	rates := p.RealAniRates()
	d := time.Duration(p.AniRate) * Jiffy
	if f < len(rates) {
		d = time.Duration(rates[f]) * Jiffy
	}
	return max(d, minDelay)
}
