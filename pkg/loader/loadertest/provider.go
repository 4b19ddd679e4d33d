// Package loadertest provides a scripted loader.Provider for tests.
package loadertest

import (
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/vnykmshr/imgflow/pkg/loader"
)

// Step is one scripted provider report.
type Step struct {
	// Wait, if non-nil, blocks the step until it is closed or the submission
	// is canceled.
	Wait <-chan struct{}

	Image    image.Image
	Err      error
	Degraded bool

	hold bool // only wait, deliver nothing
}

// Partial returns a step delivering a degraded image of the given width.
func Partial(width int) Step {
	return Step{Image: Image(width, width), Degraded: true}
}

// Final returns a step delivering a final image of the given width.
func Final(width int) Step {
	return Step{Image: Image(width, width)}
}

// Fail returns a step reporting err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Empty returns a final step with neither image nor error.
func Empty() Step {
	return Step{}
}

// Hold returns a step that blocks until release is closed or the submission
// is canceled, delivering nothing.
func Hold(release <-chan struct{}) Step {
	return Step{Wait: release, hold: true}
}

// Then makes step wait for release before delivering.
func (s Step) Then(release <-chan struct{}) Step {
	s.Wait = release
	return s
}

// After returns a channel closed once d has elapsed, for use with Then.
// Unlike time.After, every receive on it succeeds once it fired.
func After(d time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	time.AfterFunc(d, func() { close(ch) })
	return ch
}

// Image returns a solid w×h image.
func Image(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 0x30, G: 0x60, B: 0x90, A: 0xff})
		}
	}
	return img
}

// Submission records one Submit call.
type Submission struct {
	Resource loader.ResourceID
	Params   loader.Params
	Token    loader.CancelToken
	At       time.Time
}

// Provider replays scripted steps per resource. Steps play on a goroutine
// per submission, one callback at a time.
type Provider struct {
	// ReportCancel makes a canceled submission send one final callback
	// flagged Cancelled, as real providers may.
	ReportCancel bool

	// SecondaryDegraded is returned by SupportsSecondaryDegraded.
	SecondaryDegraded bool

	mu          sync.Mutex
	scripts     map[loader.ResourceID][]Step
	fallback    []Step
	submissions []Submission
	canceled    []loader.CancelToken
	stops       map[loader.CancelToken]chan struct{}
	next        loader.CancelToken
	wg          sync.WaitGroup
}

var (
	_ loader.Provider                   = (*Provider)(nil)
	_ loader.SecondaryDegradedSupporter = (*Provider)(nil)
)

// NewProvider returns a provider that delivers a single 64px final image
// for resources without a script.
func NewProvider() *Provider {
	return &Provider{
		SecondaryDegraded: true,
		scripts:           make(map[loader.ResourceID][]Step),
		fallback:          []Step{Final(64)},
		stops:             make(map[loader.CancelToken]chan struct{}),
	}
}

// Script sets the steps played for id.
func (p *Provider) Script(id loader.ResourceID, steps ...Step) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[id] = steps
	return p
}

// Submit implements loader.Provider.
func (p *Provider) Submit(id loader.ResourceID, params loader.Params, callback func(loader.Delivery)) loader.CancelToken {
	p.mu.Lock()
	p.next++
	token := p.next
	steps, ok := p.scripts[id]
	if !ok {
		steps = p.fallback
	}
	stop := make(chan struct{})
	p.stops[token] = stop
	p.submissions = append(p.submissions, Submission{
		Resource: id,
		Params:   params,
		Token:    token,
		At:       time.Now(),
	})
	p.wg.Add(1)
	p.mu.Unlock()

	go p.play(steps, stop, callback)
	return token
}

// Cancel implements loader.Provider.
func (p *Provider) Cancel(token loader.CancelToken) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.canceled = append(p.canceled, token)
	if stop, ok := p.stops[token]; ok {
		close(stop)
		delete(p.stops, token)
	}
}

// SupportsSecondaryDegraded implements loader.SecondaryDegradedSupporter.
func (p *Provider) SupportsSecondaryDegraded() bool {
	return p.SecondaryDegraded
}

func (p *Provider) play(steps []Step, stop <-chan struct{}, callback func(loader.Delivery)) {
	defer p.wg.Done()

	canceled := func() {
		if p.ReportCancel {
			callback(loader.Delivery{Cancelled: true})
		}
	}

	for _, step := range steps {
		if step.Wait != nil {
			select {
			case <-step.Wait:
			case <-stop:
				canceled()
				return
			}
		}
		select {
		case <-stop:
			canceled()
			return
		default:
		}
		if step.hold {
			continue
		}
		callback(loader.Delivery{
			Image:    step.Image,
			Err:      step.Err,
			Degraded: step.Degraded,
		})
	}
}

// Submissions returns the recorded Submit calls in order.
func (p *Provider) Submissions() []Submission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Submission(nil), p.submissions...)
}

// Canceled returns the tokens passed to Cancel in order.
func (p *Provider) Canceled() []loader.CancelToken {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]loader.CancelToken(nil), p.canceled...)
}

// Wait blocks until every submission's script has finished playing.
func (p *Provider) Wait() {
	p.wg.Wait()
}
