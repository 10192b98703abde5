package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sakif/px/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return model.Time(ms).UTC().Format(time.RFC3339)
}

// printTag renders one tag:
//
//	id:       pxabc2345
//	name:     Echo project
//	meta:     {"lang":"go"}
//	created:  2026-01-02T15:04:05Z
//	updated:  2026-01-02T15:04:05Z
//	links:
//	  github: https://github.com/x/echo
func printTag(w io.Writer, tag *model.Tag) {
	fmt.Fprintf(w, "id:       %s\n", tag.ID)
	fmt.Fprintf(w, "name:     %s\n", tag.Name)
	fmt.Fprintf(w, "meta:     %s\n", tag.Meta.String())
	fmt.Fprintf(w, "created:  %s\n", formatTime(tag.CreatedAt))
	fmt.Fprintf(w, "updated:  %s\n", formatTime(tag.UpdatedAt))
	if tag.DetailsOutdated {
		fmt.Fprintln(w, "note:     meta and links may be out of date, run px sync")
	}
	if len(tag.Links) == 0 {
		fmt.Fprintln(w, "links:    (none)")
		return
	}
	fmt.Fprintln(w, "links:")
	for _, l := range tag.Links {
		fmt.Fprintf(w, "  %s: %s\n", l.Type, l.URL)
	}
}

// printTable renders id, name and updated columns.
func printTable(w io.Writer, rows []model.TagSummary) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "no tags")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUPDATED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Name, formatTime(r.UpdatedAt))
	}
	return tw.Flush()
}

func summaries(tags []model.Tag) []model.TagSummary {
	out := make([]model.TagSummary, 0, len(tags))
	for i := range tags {
		out = append(out, tags[i].Summary())
	}
	return out
}
