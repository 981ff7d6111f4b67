package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atinyakov/ReinsDesk/internal/app"
	"github.com/atinyakov/ReinsDesk/internal/client/listing"
	"github.com/atinyakov/ReinsDesk/internal/format"
)

const shellHelp = `Available commands:
  list                 reload the first page
  more                 load the next page
  search <text>        set the search term (empty clears it)
  filter k=v [k=v...]  set filters (keys: %s)
  unfilter <k>         clear one filter
  clear                clear every filter except the search
  show <id>            show a listing (an id prefix of a loaded listing works)
  delete <id>          delete a listing
  whoami               show the signed-in account
  login                sign in again
  logout               sign out
  exit                 leave the shell`

func newShellCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive line shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			return runShell(cmd.Context(), core, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// shell is the line-oriented front end over the client stores.
type shell struct {
	core   *app.App
	out    io.Writer
	prompt *Prompter
}

// runShell reads commands from in until exit or end of input.
func runShell(ctx context.Context, core *app.App, in io.Reader, out io.Writer) error {
	sh := &shell{core: core, out: out, prompt: NewPrompter(in, out)}

	if !core.Session.IsLoggedIn() {
		if err := sh.login(ctx); err != nil {
			if errors.Is(err, ErrAborted) {
				return nil
			}
			core.Nav.Report(err)
		}
	}

	for {
		line, err := sh.prompt.Line("reinsdesk> ")
		if errors.Is(err, ErrAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Fprintln(out, "Bye")
			return nil
		}
		if err := sh.exec(ctx, args[0], args[1:], line); err != nil {
			core.Nav.Report(err)
		}
	}
}

func (sh *shell) exec(ctx context.Context, name string, args []string, line string) error {
	l := sh.core.Listing
	switch name {
	case "help":
		keys := make([]string, 0, len(listing.FilterKeys))
		for _, k := range listing.FilterKeys[1:] {
			keys = append(keys, string(k))
		}
		fmt.Fprintf(sh.out, shellHelp+"\n", strings.Join(keys, ", "))
	case "list":
		if err := l.FetchProperties(ctx, true); err != nil {
			return err
		}
		return sh.printList()
	case "more":
		if !l.Snapshot().HasMore {
			fmt.Fprintln(sh.out, "No more listings")
			return nil
		}
		if err := l.FetchMoreProperties(ctx); err != nil {
			return err
		}
		return sh.printList()
	case "search":
		_, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		l.SetSearch(strings.TrimSpace(rest))
		return sh.printList()
	case "filter":
		if len(args) == 0 {
			return sh.printFilters()
		}
		patch := make(map[listing.FilterKey]string, len(args))
		for _, kv := range args {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("usage: filter key=value [key=value...]")
			}
			patch[listing.FilterKey(k)] = v
		}
		if err := l.SetFilters(patch); err != nil {
			return err
		}
		return sh.printList()
	case "unfilter":
		if len(args) != 1 {
			return errors.New("usage: unfilter <key>")
		}
		if err := l.RemoveFilter(listing.FilterKey(args[0])); err != nil {
			return err
		}
		return sh.printList()
	case "clear":
		l.ClearFilters()
		return sh.printList()
	case "show":
		if len(args) != 1 {
			return errors.New("usage: show <id>")
		}
		id, err := sh.resolveID(args[0])
		if err != nil {
			return err
		}
		if err := sh.core.OpenProperty(ctx, id); err != nil {
			return err
		}
		p, _ := sh.core.Detail.Current()
		return format.PropertyDetail(sh.out, p, sh.core.API.FileURL)
	case "delete":
		if len(args) != 1 {
			return errors.New("usage: delete <id>")
		}
		id, err := sh.resolveID(args[0])
		if err != nil {
			return err
		}
		ok, err := sh.prompt.Confirm("Delete property " + id + "?")
		if err != nil || !ok {
			return err
		}
		if err := sh.core.Detail.DeleteProperty(ctx, id); err != nil {
			return err
		}
		sh.core.Nav.Navigate(app.ScreenProperties, "")
		fmt.Fprintln(sh.out, "Property deleted")
	case "whoami":
		s := sh.core.Session.Snapshot()
		if !s.IsLoggedIn {
			fmt.Fprintln(sh.out, "Not logged in")
			return nil
		}
		if s.User == nil {
			if err := sh.core.Session.CheckAuth(ctx); err != nil {
				return err
			}
			s = sh.core.Session.Snapshot()
		}
		if s.User != nil {
			fmt.Fprintf(sh.out, "%s <%s>\n", s.User.Username, s.User.Email)
		}
	case "login":
		return sh.login(ctx)
	case "logout":
		if err := sh.core.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "Logged out")
	default:
		fmt.Fprintln(sh.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (sh *shell) login(ctx context.Context) error {
	u, p, err := sh.prompt.Credentials("", "")
	if err != nil {
		return err
	}
	if err := sh.core.Login(ctx, u, p); err != nil {
		return err
	}
	fmt.Fprintln(sh.out, "Logged in as", u)
	return nil
}

func (sh *shell) printList() error {
	snap := sh.core.Listing.Snapshot()
	items := sh.core.Listing.FilteredProperties()
	if err := format.PropertiesTable(sh.out, items, snap.Total); err != nil {
		return err
	}
	if err := writeFilterLine(sh.out, snap.Filters.Search, sh.core.Listing.ActiveFilters(), len(snap.Items)); err != nil {
		return err
	}
	if snap.HasMore {
		fmt.Fprintln(sh.out, "Type 'more' to load the next page")
	}
	return nil
}

func (sh *shell) printFilters() error {
	f := sh.core.Listing.Filters()
	active := sh.core.Listing.ActiveFilters()
	if f.Search == "" && len(active) == 0 {
		fmt.Fprintln(sh.out, "No filters")
		return nil
	}
	return writeFilterLine(sh.out, f.Search, active, len(sh.core.Listing.Snapshot().Items))
}

// resolveID expands a unique prefix of a loaded listing id. Anything else
// is passed through unchanged.
func (sh *shell) resolveID(s string) (string, error) {
	if _, ok := sh.core.Listing.Lookup(s); ok {
		return s, nil
	}
	var match string
	for _, p := range sh.core.Listing.Snapshot().Items {
		if strings.HasPrefix(p.ID, s) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", s)
			}
			match = p.ID
		}
	}
	if match == "" {
		return s, nil
	}
	return match, nil
}
