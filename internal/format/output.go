// Package format renders command results as JSON or terminal tables.
package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Output formats.
const (
	Table = "table"
	JSON  = "json"
)

// WriteJSON writes v as a single JSON document.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Write writes v as JSON, or calls table for the table format.
func Write(w io.Writer, v any, format string, pretty bool, table func(io.Writer) error) error {
	switch format {
	case JSON:
		return WriteJSON(w, v, pretty)
	case "", Table:
		if table == nil {
			return WriteJSON(w, v, true)
		}
		return table(w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
