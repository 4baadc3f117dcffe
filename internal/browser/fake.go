package browser

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/agentic-web/workspace/internal/types"
)

// Fake is a deterministic, in-memory Engine for tests: it never
// actually renders anything, just tracks view state and call counts.
type Fake struct {
	mu          sync.Mutex
	views       map[ViewHandle]types.Bounds
	navigations map[ViewHandle][]string
	nextID      int64

	// SetBoundsCalls counts every SetBounds invocation, including
	// redundant ones, so tests can assert the no-op round-trip property.
	SetBoundsCalls int64

	FailCreateView bool
	FailNavigate   bool
}

// NewFake builds an empty Fake engine.
func NewFake() *Fake {
	return &Fake{
		views:       make(map[ViewHandle]types.Bounds),
		navigations: make(map[ViewHandle][]string),
	}
}

func (f *Fake) CreateView(ctx context.Context, bounds types.Bounds) (ViewHandle, error) {
	if f.FailCreateView {
		return "", context.Canceled
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	handle := ViewHandle("view-" + strconv.FormatInt(f.nextID, 10))
	f.views[handle] = bounds
	return handle, nil
}

func (f *Fake) Navigate(ctx context.Context, view ViewHandle, url string) error {
	if f.FailNavigate {
		return context.Canceled
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations[view] = append(f.navigations[view], url)
	return nil
}

func (f *Fake) SetBounds(ctx context.Context, view ViewHandle, bounds types.Bounds) error {
	atomic.AddInt64(&f.SetBoundsCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[view] = bounds
	return nil
}

func (f *Fake) DestroyView(ctx context.Context, view ViewHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.views, view)
	delete(f.navigations, view)
	return nil
}

// NavigationsFor returns the ordered list of URLs view was navigated to.
func (f *Fake) NavigationsFor(view ViewHandle) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigations[view]...)
}

// BoundsOf returns the last-set bounds for view.
func (f *Fake) BoundsOf(view ViewHandle) types.Bounds {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.views[view]
}

var _ Engine = (*Fake)(nil)
