package cli

import (
	"github.com/spf13/cobra"

	"github.com/atinyakov/ReinsDesk/internal/tui"
)

func newBrowseCmd(a *App) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:     "browse",
		Aliases: []string{"ui"},
		Short:   "Full-screen listing browser",
		Long: `Opens the full-screen browser. Without a stored session it starts on the
login form; when the session expires it returns there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			core.Listing.SetSearch(search)
			return tui.Run(cmd.Context(), core, a.note.Swap)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "initial search term")
	return cmd
}
