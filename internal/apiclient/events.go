package apiclient

// EventKind classifies what went wrong on a backend call.
type EventKind int

const (
	// EventSessionExpired follows an HTTP 401. Credentials are already cleared.
	EventSessionExpired EventKind = iota + 1
	// EventRequestFailed follows any other failed call.
	EventRequestFailed
)

func (k EventKind) String() string {
	switch k {
	case EventSessionExpired:
		return "session_expired"
	case EventRequestFailed:
		return "request_failed"
	}
	return "unknown"
}

// Event is delivered synchronously to subscribers exactly once per failed
// call, before the call returns its error.
type Event struct {
	Kind EventKind
	// Method and Path identify the failed call.
	Method string
	Path   string
	Err    *Error
}

// Subscribe registers fn for every Event and returns a function that
// removes it.
func (c *Client) Subscribe(fn func(Event)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

type subscriber struct {
	id int
	fn func(Event)
}

func (c *Client) emit(ev Event) {
	c.subMu.RLock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, s := range c.subs {
		fns = append(fns, s.fn)
	}
	c.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
