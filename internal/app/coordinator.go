// Package app wires the client stores together and owns navigation and user
// notifications.
package app

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/ReinsDesk/internal/apiclient"
)

// Screen is a top-level view.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenProperties
	ScreenDetail
)

func (s Screen) String() string {
	switch s {
	case ScreenLogin:
		return "login"
	case ScreenProperties:
		return "properties"
	case ScreenDetail:
		return "detail"
	}
	return fmt.Sprintf("screen(%d)", int(s))
}

// Messages shown on authorization failures.
const (
	MsgSessionExpired     = "Session expired. Please login again."
	MsgInvalidCredentials = "Invalid credentials"
)

// Level is the severity of a Notification.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notification is a message for the user.
type Notification struct {
	Level   Level
	Message string
}

// Notifier displays notifications.
type Notifier func(Notification)

// EventSource is where backend failure events come from.
type EventSource interface {
	Subscribe(fn func(apiclient.Event)) func()
}

// Coordinator reacts to backend events: it shows each failure once and
// sends the user to the login screen when the session expires.
type Coordinator struct {
	notify Notifier
	log    *zap.Logger

	mu        sync.RWMutex
	screen    Screen
	detailID  string
	listeners []func(Screen)

	unsubscribe func()
}

// NewCoordinator starts on start and subscribes to events.
func NewCoordinator(events EventSource, start Screen, notify Notifier, log *zap.Logger) *Coordinator {
	if notify == nil {
		notify = func(Notification) {}
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{notify: notify, log: log, screen: start}
	c.unsubscribe = events.Subscribe(c.handle)
	return c
}

// Close stops listening for events.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Coordinator) handle(ev apiclient.Event) {
	if ev.Err == nil {
		return
	}
	defer ev.Err.MarkNotified()

	switch ev.Kind {
	case apiclient.EventSessionExpired:
		if c.Screen() == ScreenLogin {
			msg := ev.Err.ServerMessage()
			if msg == "" {
				msg = MsgInvalidCredentials
			}
			c.notify(Notification{Level: LevelError, Message: msg})
			return
		}
		c.log.Info("session expired", zap.String("path", ev.Path))
		c.notify(Notification{Level: LevelError, Message: MsgSessionExpired})
		c.Navigate(ScreenLogin, "")
	case apiclient.EventRequestFailed:
		c.notify(Notification{Level: LevelError, Message: ev.Err.Message})
	}
}

// Navigate switches screens. id is the property shown on ScreenDetail.
func (c *Coordinator) Navigate(to Screen, id string) {
	c.mu.Lock()
	if c.screen == to && c.detailID == id {
		c.mu.Unlock()
		return
	}
	c.screen, c.detailID = to, id
	listeners := append(([]func(Screen))(nil), c.listeners...)
	c.mu.Unlock()

	c.log.Debug("navigate", zap.Stringer("screen", to), zap.String("id", id))
	for _, fn := range listeners {
		fn(to)
	}
}

// Screen returns the current screen.
func (c *Coordinator) Screen() Screen {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.screen
}

// DetailID returns the property shown on ScreenDetail.
func (c *Coordinator) DetailID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detailID
}

// OnNavigate registers fn for screen changes.
func (c *Coordinator) OnNavigate(fn func(Screen)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Info shows an informational message.
func (c *Coordinator) Info(format string, args ...any) {
	c.notify(Notification{Level: LevelInfo, Message: fmt.Sprintf(format, args...)})
}

// Report shows err unless it was already shown for the failed call.
func (c *Coordinator) Report(err error) {
	if err == nil || apiclient.Notified(err) {
		return
	}
	c.notify(Notification{Level: LevelError, Message: err.Error()})
}
