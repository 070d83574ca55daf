package omnifetch

import (
	"context"
	"sync"
)

// State is a snapshot of a Fetcher: at most one of Data and Err is set, and
// Loading is true while an execution is in flight.
type State struct {
	Data    *Response
	Loading bool
	Err     error
}

// Fetcher is a per-caller request handle over a shared Client. It keeps the
// idle / loading / success / failure state for one logical consumer and
// guarantees that at most one execution is in flight: starting a new one
// cancels the previous, and a superseded execution never mutates state no
// matter when its network call resolves.
//
// A Fetcher must not be shared between unrelated consumers; create one per
// call site the way each dashboard widget owns its own request state.
type Fetcher struct {
	client *Client

	mu         sync.Mutex
	state      State
	cancel     context.CancelFunc
	generation uint64
}

// NewFetcher creates an idle Fetcher bound to client.
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// Execute runs req through the client, transitioning to loading and then to
// success or failure. If a prior execution is still in flight it is
// cancelled first and its eventual result discarded. The returned values
// reflect this execution even when a newer one superseded it mid-flight; in
// that case err is context.Canceled unless the request already finished.
func (f *Fetcher) Execute(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.generation++
	gen := f.generation
	f.state = State{Loading: true}
	f.mu.Unlock()

	resp, err := f.client.Execute(runCtx, req)

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		// Superseded: a newer Execute or Reset owns the state now.
		cancel()
		if err != nil {
			return nil, err
		}
		return resp, context.Canceled
	}

	f.cancel = nil
	cancel()

	if err != nil {
		f.state = State{Err: err}
		return nil, err
	}
	f.state = State{Data: resp}
	return resp, nil
}

// Reset cancels any in-flight execution and returns the Fetcher to idle.
func (f *Fetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.generation++
	f.state = State{}
}

// State returns the current state snapshot.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
