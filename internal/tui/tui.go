// Package tui is the full-screen listing browser.
package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atinyakov/ReinsDesk/internal/app"
)

// Run shows the browser until the user quits. swap installs the browser's
// notification sink and is called again with the previous sink on exit.
func Run(ctx context.Context, a *app.App, swap func(app.Notifier) app.Notifier) error {
	box := &inbox{}
	prev := swap(box.push)
	defer swap(prev)

	_, err := tea.NewProgram(newModel(ctx, a, box), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// inbox collects notifications raised while commands run so the model can
// show them on its next update.
type inbox struct {
	mu    sync.Mutex
	items []app.Notification
}

func (b *inbox) push(n app.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
}

func (b *inbox) drain() []app.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}
