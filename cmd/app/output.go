package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prasetyowira/qrgen/domain/generation"
	"github.com/prasetyowira/qrgen/domain/render"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseFormat(raw string) (outputFormat, error) {
	switch f := outputFormat(raw); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q: must be one of table, json, yaml", raw)
	}
}

func writeStructured(w io.Writer, format outputFormat, v interface{}) error {
	switch format {
	case formatJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(pretty.Pretty(b))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported structured format %q", format)
}

func writeResult(w io.Writer, format outputFormat, result *generation.Result) error {
	if format != formatTable {
		return writeStructured(w, format, result)
	}

	fmt.Fprintf(w, "QR code:  %s\n", result.ImageURL)
	fmt.Fprintf(w, "Source:   %s\n", result.SourceURL)
	fmt.Fprintf(w, "Size:     %dx%d\n", result.Record.Size, result.Record.Size)
	fmt.Fprintf(w, "ID:       %s\n", result.Record.ID)
	fmt.Fprintln(w, result.GeneratedOn)
	return nil
}

func writeView(w io.Writer, format outputFormat, view *render.View) error {
	if format != formatTable {
		return writeStructured(w, format, view)
	}

	if view.Empty {
		fmt.Fprintln(w, view.EmptyMessage)
		return nil
	}
	if view.NoMatches {
		fmt.Fprintln(w, view.EmptyMessage)
		fmt.Fprintf(w, "0 of %d entries match %q\n", view.Total, view.Query)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tURL\tSIZE\tCREATED\tID")
	for _, e := range view.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", e.Index, e.Label, e.Size, created(e), e.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if view.Query != "" {
		fmt.Fprintf(w, "%d of %d entries match %q\n", len(view.Entries), view.Total, view.Query)
	}
	return nil
}

// created renders the entry's creation time relative to now. Records
// without a parseable timestamp fall back to their display date.
func created(e render.Entry) string {
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return e.Date
	}
	return humanize.Time(t)
}
