package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atinyakov/ReinsDesk/internal/apiclient"
	"github.com/atinyakov/ReinsDesk/internal/client/listing"
	"github.com/atinyakov/ReinsDesk/internal/format"
	"github.com/atinyakov/ReinsDesk/internal/models"
)

func newPropertiesCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "properties",
		Aliases: []string{"props", "p"},
		Short:   "Listing commands",
	}
	cmd.AddCommand(newPropertiesListCmd(a))
	cmd.AddCommand(newPropertiesShowCmd(a))
	cmd.AddCommand(newPropertiesDeleteCmd(a))
	cmd.AddCommand(newPropertiesUploadCmd(a))
	cmd.AddCommand(newPropertiesFilesCmd(a))
	return cmd
}

// filterFlags maps command line flags to listing filter keys.
var filterFlags = []struct {
	flag  string
	key   listing.FilterKey
	usage string
}{
	{"search", listing.KeySearch, "case-insensitive text search"},
	{"prefecture", listing.KeyPrefecture, "exact prefecture"},
	{"city", listing.KeyCity, "exact city"},
	{"layout", listing.KeyLayoutType, "exact layout type, e.g. 1LDK"},
	{"structure", listing.KeyBuildingStructure, "exact building structure"},
	{"station", listing.KeyStation, "station name contained in any of the three stations"},
	{"min-rent", listing.KeyMinRent, "minimum rent in yen"},
	{"max-rent", listing.KeyMaxRent, "maximum rent in yen"},
	{"min-area", listing.KeyMinArea, "minimum usable area in m²"},
	{"max-area", listing.KeyMaxArea, "maximum usable area in m²"},
	{"status", listing.KeyStatus, "pending, processing, success, failed or all"},
}

// listResult is the JSON shape of properties list.
type listResult struct {
	Properties []models.Property             `json:"properties"`
	Total      int                           `json:"total"`
	Loaded     int                           `json:"loaded"`
	HasMore    bool                          `json:"hasMore"`
	Search     string                        `json:"search,omitempty"`
	Filters    []listing.ActiveFilter        `json:"filters,omitempty"`
	ByStatus   map[models.PropertyStatus]int `json:"byStatus,omitempty"`
}

func newPropertiesListCmd(a *App) *cobra.Command {
	var all bool
	var pages int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List listings, filtered locally",
		Long: strings.TrimSpace(`
List listings. Pages are fetched from the backend and the filters are applied
to everything loaded, so --all is needed to filter the whole collection.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			patch := map[listing.FilterKey]string{}
			for _, f := range filterFlags {
				if cmd.Flags().Changed(f.flag) {
					v, _ := cmd.Flags().GetString(f.flag)
					patch[f.key] = v
				}
			}
			if err := core.Listing.SetFilters(patch); err != nil {
				return err
			}
			if all {
				pages = 0
			} else if pages < 1 {
				return errors.New("--pages must be at least 1")
			}
			if err := loadPages(cmd.Context(), core.Listing, pages); err != nil {
				return err
			}
			return writeListing(cmd, a, core.Listing)
		},
	}
	for _, f := range filterFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch")
	return cmd
}

// loadPages fetches the first page and then further pages while the
// backend reports more. pages <= 0 fetches everything.
func loadPages(ctx context.Context, l *listing.Store, pages int) error {
	if err := l.FetchProperties(ctx, true); err != nil {
		return err
	}
	for n := 1; pages <= 0 || n < pages; n++ {
		snap := l.Snapshot()
		if !snap.HasMore {
			return nil
		}
		if err := l.FetchMoreProperties(ctx); err != nil {
			return err
		}
		if len(l.Snapshot().Items) == len(snap.Items) {
			return nil
		}
	}
	return nil
}

func writeListing(cmd *cobra.Command, a *App, l *listing.Store) error {
	snap := l.Snapshot()
	items := l.FilteredProperties()
	v := listResult{
		Properties: items,
		Total:      snap.Total,
		Loaded:     len(snap.Items),
		HasMore:    snap.HasMore,
		Search:     snap.Filters.Search,
		Filters:    l.ActiveFilters(),
		ByStatus:   l.CountByStatus(),
	}
	return a.write(cmd, v, func(w io.Writer) error {
		if err := format.PropertiesTable(w, items, snap.Total); err != nil {
			return err
		}
		return writeFilterLine(w, v.Search, v.Filters, len(snap.Items))
	})
}

func writeFilterLine(w io.Writer, search string, active []listing.ActiveFilter, loaded int) error {
	if search == "" && len(active) == 0 {
		return nil
	}
	parts := make([]string, 0, len(active)+1)
	if search != "" {
		parts = append(parts, fmt.Sprintf("Search: %q", search))
	}
	for _, f := range active {
		parts = append(parts, f.Label)
	}
	_, err := fmt.Fprintf(w, "Filters (%d loaded): %s\n", loaded, strings.Join(parts, ", "))
	return err
}

func newPropertiesShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			if err := core.OpenProperty(cmd.Context(), args[0]); err != nil {
				return err
			}
			p, _ := core.Detail.Current()
			return a.write(cmd, p, func(w io.Writer) error {
				return format.PropertyDetail(w, p, core.API.FileURL)
			})
		},
	}
}

func newPropertiesDeleteCmd(a *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			if !yes {
				ok, err := NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).Confirm("Delete property " + args[0] + "?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
					return nil
				}
			}
			if err := core.Detail.DeleteProperty(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Deleted", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newPropertiesUploadCmd(a *App) *cobra.Command {
	var (
		fields    map[string]string
		htmlFile  string
		floorplan string
		images    []string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Ingest a listing with its documents",
		Example: strings.TrimSpace(`
  reinsdesk properties upload --set buildingName="Sakura Heights" --set rent=85000円 \
    --html sheet.html --floorplan plan.png --image front.jpg --image room.jpg`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			up := apiclient.Upload{Fields: fields}
			var closers []io.Closer
			defer func() {
				for _, c := range closers {
					_ = c.Close()
				}
			}()
			add := func(field, path string) error {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", path, err)
				}
				closers = append(closers, f)
				up.Files = append(up.Files, apiclient.UploadFile{Field: field, Filename: filepath.Base(path), Content: f})
				return nil
			}
			if htmlFile != "" {
				if err := add("html", htmlFile); err != nil {
					return err
				}
			}
			if floorplan != "" {
				if err := add("floorplan", floorplan); err != nil {
					return err
				}
			}
			for _, img := range images {
				if err := add("images", img); err != nil {
					return err
				}
			}
			if len(up.Fields) == 0 && len(up.Files) == 0 {
				return errors.New("nothing to upload: pass --set or a file")
			}

			p, err := core.API.CreateProperty(cmd.Context(), up)
			if err != nil {
				return err
			}
			return a.write(cmd, p, func(w io.Writer) error {
				return format.PropertyDetail(w, p, core.API.FileURL)
			})
		},
	}
	cmd.Flags().StringToStringVar(&fields, "set", nil, "property field, e.g. --set rent=85000円 (repeatable)")
	cmd.Flags().StringVar(&htmlFile, "html", "", "REINS HTML sheet")
	cmd.Flags().StringVar(&floorplan, "floorplan", "", "floor plan image")
	cmd.Flags().StringArrayVar(&images, "image", nil, "photo (repeatable)")
	return cmd
}

// fileView is one attached document in JSON output.
type fileView struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

func fileViews(p models.Property, resolve func(string) string) []fileView {
	out := []fileView{}
	f := p.Files
	if f == nil {
		return out
	}
	if f.HTMLPath != "" {
		out = append(out, fileView{"html", f.HTMLFilename, resolve(f.HTMLPath)})
	}
	if f.FloorplanPath != "" {
		out = append(out, fileView{"floorplan", f.FloorplanFilename, resolve(f.FloorplanPath)})
	}
	for i, img := range f.ImagePaths {
		name := ""
		if i < len(f.ImageFilenames) {
			name = f.ImageFilenames[i]
		}
		out = append(out, fileView{"image", name, resolve(img)})
	}
	return out
}

func newPropertiesFilesCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "files <id>",
		Short: "List the documents attached to a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := a.Core(cmd)
			if err != nil {
				return err
			}
			if err := core.Detail.FetchProperty(cmd.Context(), args[0]); err != nil {
				return err
			}
			p, _ := core.Detail.Current()
			return a.write(cmd, fileViews(p, core.API.FileURL), func(w io.Writer) error {
				return format.FilesTable(w, p, core.API.FileURL)
			})
		},
	}
}
