package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/atinyakov/ReinsDesk/internal/app"
	"github.com/atinyakov/ReinsDesk/internal/format"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// notifier forwards notifications to a replaceable sink. The browser
// swaps in its own sink while it owns the screen.
type notifier struct {
	mu sync.Mutex
	fn app.Notifier
}

func newNotifier(w io.Writer) *notifier {
	return &notifier{fn: printer(w)}
}

func printer(w io.Writer) app.Notifier {
	return func(n app.Notification) {
		if n.Level == app.LevelError {
			fmt.Fprintln(w, errorStyle.Render("error: "+n.Message))
			return
		}
		fmt.Fprintln(w, infoStyle.Render(n.Message))
	}
}

// Notify delivers n to the current sink.
func (n *notifier) Notify(x app.Notification) {
	n.mu.Lock()
	fn := n.fn
	n.mu.Unlock()
	fn(x)
}

// Swap installs fn and returns the previous sink.
func (n *notifier) Swap(fn app.Notifier) app.Notifier {
	n.mu.Lock()
	defer n.mu.Unlock()
	prev := n.fn
	n.fn = fn
	return prev
}

func (a *App) write(cmd *cobra.Command, v any, table func(io.Writer) error) error {
	return format.Write(cmd.OutOrStdout(), v, a.opts.Output.Format, a.opts.Output.Pretty, table)
}
