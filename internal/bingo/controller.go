// internal/bingo/controller.go
//
// Controller owns one State and applies the pure mutations above.
// Subscribers (rendering adapters, autosave) are called after every
// change with the new State, in subscription order.
//
// The engine is single-user; the locks only serialize the HTTP adapter's
// handler goroutines for one session. Notifications are delivered in
// commit order, so the last State an observer sees is the current one.
// Observers must not call back into the mutating methods.

package bingo

import (
	"math/rand/v2"
	"sync"
)

// Observer is notified with the latest State after a change.
type Observer func(State)

// Controller wraps a State with change notification.
type Controller struct {
	deliver   sync.Mutex // held from commit through notification
	mu        sync.Mutex // guards the fields below
	state     State
	rng       Shuffler
	observers map[int]Observer
	order     []int
	nextID    int
}

// NewController starts from st. A nil rng uses a randomly seeded PCG.
func NewController(st State, rng Shuffler) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Controller{state: st, rng: rng, observers: make(map[int]Observer)}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn and returns a function that removes it.
func (c *Controller) Subscribe(fn Observer) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.observers[id]; !ok {
			return
		}
		delete(c.observers, id)
		for i, v := range c.order {
			if v == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
}

// Update applies fn atomically. Observers run only when fn succeeds and
// the state actually changed.
func (c *Controller) Update(fn func(State) (State, error)) (State, error) {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	prev := c.state
	next, err := fn(prev)
	if err != nil {
		c.mu.Unlock()
		return prev, err
	}
	c.state = next
	obs := c.snapshotObservers()
	c.mu.Unlock()

	if next != prev {
		for _, fn := range obs {
			fn(next)
		}
	}
	return next, nil
}

func (c *Controller) snapshotObservers() []Observer {
	out := make([]Observer, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.observers[id])
	}
	return out
}

// ToggleMark flips cell i (play mode) and returns the win outcome.
func (c *Controller) ToggleMark(i int) (State, Outcome, error) {
	var out Outcome
	st, err := c.Update(func(s State) (State, error) {
		next, o, err := s.ToggleMark(i)
		out = o
		return next, err
	})
	return st, out, err
}

// EditText sets the text of cell i (creation mode).
func (c *Controller) EditText(i int, text string) (State, error) {
	return c.Update(func(s State) (State, error) { return s.EditText(i, text) })
}

// EditImage sets the image of cell i (creation mode).
func (c *Controller) EditImage(i int, dataURI string) (State, error) {
	return c.Update(func(s State) (State, error) { return s.EditImage(i, dataURI) })
}

// Randomize shuffles the non-free cells.
func (c *Controller) Randomize() State {
	st, _ := c.Update(func(s State) (State, error) { return s.Randomize(c.rng), nil })
	return st
}

// Reset clears content or marks depending on the mode.
func (c *Controller) Reset() State {
	st, _ := c.Update(func(s State) (State, error) { return s.Reset(), nil })
	return st
}

// SwitchMode changes the mode.
func (c *Controller) SwitchMode(m Mode) (State, error) {
	return c.Update(func(s State) (State, error) { return s.SwitchMode(m) })
}

// SwitchStrategy changes the strategy and returns the re-evaluated outcome.
func (c *Controller) SwitchStrategy(st Strategy) (State, Outcome, error) {
	var out Outcome
	next, err := c.Update(func(s State) (State, error) {
		n, o, err := s.SwitchStrategy(st)
		out = o
		return n, err
	})
	return next, out, err
}

// SetTitle replaces the title (creation mode).
func (c *Controller) SetTitle(title string) (State, error) {
	return c.Update(func(s State) (State, error) { return s.SetTitle(title) })
}

// Import replaces the board from an exported document. On error the
// board is untouched.
func (c *Controller) Import(data []byte) (State, error) {
	im, err := Import(data)
	if err != nil {
		return c.State(), err
	}
	return c.Update(func(s State) (State, error) { return s.ApplyImport(im), nil })
}

// Export encodes the current board.
func (c *Controller) Export() (filename string, data []byte, err error) {
	st := c.State()
	data, err = Export(st.Title, st.Squares)
	return ExportFilename(st.Title), data, err
}
