package render

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
)

// recordedFrame is a command list recorded on the render goroutine, waiting to
// be executed and presented by the compositor.
type recordedFrame struct {
	list *CommandList
	gen  uint64
	err  error
}

// threadedHost records frames on a dedicated goroutine and executes them on the
// compositor's goroutine. Device start and end run synchronously on the render
// goroutine, as does attaching the renderable; frame recording is posted
// without waiting. busy is set from the moment a frame is queued until it is
// presented, and no new frame is queued while it is set.
type threadedHost struct {
	*renderHostImpl

	lifeMu *sync.Mutex
	closed bool
	jobs   chan func()
	done   chan struct{}

	frames chan recordedFrame
	busy   atomic.Bool
}

var _ RenderHost = &threadedHost{}

func newThreadedHost(base *renderHostImpl) *threadedHost {
	t := &threadedHost{
		renderHostImpl: base,
		lifeMu:         &sync.Mutex{},
		jobs:           make(chan func(), 16),
		done:           make(chan struct{}),
		frames:         make(chan recordedFrame, 1),
	}
	base.self = t
	go t.loop()
	return t
}

func (t *threadedHost) loop() {
	defer close(t.done)
	for job := range t.jobs {
		job()
	}
}

// invoke runs fn on the render goroutine and waits for it. After Close, fn runs
// on the caller's goroutine.
func (t *threadedHost) invoke(fn func()) {
	t.lifeMu.Lock()
	if t.closed {
		t.lifeMu.Unlock()
		fn()
		return
	}
	finished := make(chan struct{})
	t.jobs <- func() {
		defer close(finished)
		fn()
	}
	t.lifeMu.Unlock()
	<-finished
}

// post queues fn on the render goroutine without waiting.
//
// Returns:
//   - bool: false if the host is closed or the queue is full
func (t *threadedHost) post(fn func()) bool {
	t.lifeMu.Lock()
	defer t.lifeMu.Unlock()
	if t.closed {
		return false
	}
	select {
	case t.jobs <- fn:
		return true
	default:
		return false
	}
}

// IsBusy reports whether a frame is queued or recorded but not yet presented.
func (t *threadedHost) IsBusy() bool {
	return t.busy.Load()
}

func (t *threadedHost) StartDevice(size common.Size) error {
	var err error
	t.invoke(func() {
		err = t.renderHostImpl.StartDevice(size)
	})
	return err
}

func (t *threadedHost) EndDevice() {
	t.invoke(func() {
		t.renderHostImpl.EndDevice()
	})
	t.discard()
}

func (t *threadedHost) OnCompositionRendering(now time.Duration) (bool, error) {
	presented, err := t.drain()
	if err != nil {
		return presented, err
	}
	queued, err := t.renderHostImpl.OnCompositionRendering(now)
	return presented || queued, err
}

// Render presents a finished frame if there is one, then queues recording of a
// new frame. It returns ErrBusy, and keeps the invalidation pending, while the
// previous frame is not presented yet.
func (t *threadedHost) Render(now time.Duration) error {
	if _, err := t.drain(); err != nil {
		return err
	}
	if !t.busy.CompareAndSwap(false, true) {
		t.InvalidateRender()
		return ErrBusy
	}

	var (
		ok  bool
		err error
		gen uint64
	)
	t.invoke(func() {
		t.frameLock.Lock()
		defer t.frameLock.Unlock()
		ok, err = t.beginFrame()
		gen = t.gen.Load()
	})
	if !ok {
		t.busy.Store(false)
		return t.report(err)
	}

	posted := t.post(func() {
		list := NewCommandList()
		t.frameLock.Lock()
		var err error
		if t.gen.Load() == gen {
			err = t.record(now, list)
		}
		t.frameLock.Unlock()
		t.frames <- recordedFrame{list: list, gen: gen, err: err}
	})
	if !posted {
		t.busy.Store(false)
		t.InvalidateRender()
		return ErrBusy
	}
	return nil
}

// drain executes and presents a recorded frame if one is ready. A frame
// recorded against targets that were rebuilt since is dropped and a new one
// requested.
//
// Returns:
//   - bool: true if a frame was presented
//   - error: an unhandled render error
func (t *threadedHost) drain() (bool, error) {
	var f recordedFrame
	select {
	case f = <-t.frames:
	default:
		return false, nil
	}

	t.frameLock.Lock()
	presented, err := t.presentRecorded(f)
	t.frameLock.Unlock()
	t.busy.Store(false)
	return presented, t.report(err)
}

// presentRecorded executes f on the immediate context and presents it.
// frameLock must be held.
func (t *threadedHost) presentRecorded(f recordedFrame) (bool, error) {
	if t.device == nil || f.gen != t.gen.Load() {
		if t.device != nil {
			t.setState(StateIdle)
		}
		t.InvalidateRender()
		return false, nil
	}
	err := f.err
	if err == nil {
		err = f.list.Execute(t.device.ImmediateContext())
	}
	if perr := t.present(err); perr != nil {
		return false, perr
	}
	return err == nil, nil
}

// discard drops a recorded frame without presenting it.
func (t *threadedHost) discard() {
	select {
	case <-t.frames:
		t.busy.Store(false)
	default:
	}
}

func (t *threadedHost) Close() {
	t.EndDevice()

	t.lifeMu.Lock()
	if t.closed {
		t.lifeMu.Unlock()
		return
	}
	t.closed = true
	close(t.jobs)
	t.lifeMu.Unlock()
	<-t.done
	t.discard()
}
