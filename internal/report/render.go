package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/roach88/oced/internal/instanceio"
)

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteValidationText renders r for a terminal.
func WriteValidationText(w io.Writer, r *ValidationReport) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "instance %s: %s, %s, %s\n",
		shortHash(r.InstanceHash),
		english.Plural(r.Objects, "object", ""),
		english.Plural(r.Events, "event", ""),
		english.Plural(r.Observes, "observe", ""))
	if r.Valid {
		fmt.Fprintln(bw, "valid: no violations")
		return bw.Flush()
	}
	fmt.Fprintf(bw, "%s of %s\n",
		english.Plural(r.Total, "violation", ""),
		english.Plural(len(r.Groups), "invariant", ""))
	for _, g := range r.Groups {
		fmt.Fprintf(bw, "\n%s %s (%d)\n", g.Code, g.Title, g.Count)
		for _, v := range g.Violations {
			refs := make([]string, len(v.Entities))
			for i, ref := range v.Entities {
				refs[i] = ref.String()
			}
			fmt.Fprintf(bw, "  %s [%s]\n", v.Reason, strings.Join(refs, ", "))
		}
	}
	return bw.Flush()
}

// WriteSearchText renders r for a terminal.
func WriteSearchText(w io.Writer, r *SearchReport) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s: %s (run %s)\n", r.Verdict, r.Goal, r.RunID)
	fmt.Fprintf(bw, "bound %s; %s over %d of %s in %dms\n",
		r.Bound.String(),
		pluralInt64(r.Steps, "step"),
		r.Completed,
		english.Plural(r.Units, "unit", ""),
		r.ElapsedMS)

	switch {
	case r.Instance != nil:
		fmt.Fprintf(bw, "\ninstance %s\n", shortHash(r.InstanceHash))
		writeDocument(bw, r.Instance)
		if len(r.Violations) > 0 {
			fmt.Fprintf(bw, "\nbreaks %s:\n", english.Plural(len(r.Violations), "invariant check", ""))
			for _, v := range r.Violations {
				fmt.Fprintf(bw, "  %s\n", v.String())
			}
		}
	case r.FullyExplored:
		fmt.Fprintln(bw, "the whole space within the bound was explored")
	default:
		fmt.Fprintf(bw, "stopped early: %s\n", r.Reason)
		fmt.Fprintln(bw, "the space was not fully explored; raise the budget or timeout to continue")
	}
	return bw.Flush()
}

func writeDocument(w io.Writer, doc *instanceio.Document) {
	fmt.Fprintf(w, "time: %s\n", strings.Join(doc.Time, " < "))
	if len(doc.Objects) > 0 {
		fmt.Fprintln(w, "objects:")
	}
	for _, o := range doc.Objects {
		fmt.Fprintf(w, "  %s %s created %s", o.ID, o.Type, o.Created)
		if o.Deleted != "" {
			fmt.Fprintf(w, " deleted %s", o.Deleted)
		}
		fmt.Fprintf(w, "%s\n", formatAttrs(o.Attributes))
	}
	if len(doc.Events) > 0 {
		fmt.Fprintln(w, "events:")
	}
	for _, e := range doc.Events {
		fmt.Fprintf(w, "  %s %s at %s%s\n", e.ID, e.Type, e.Timestamp, formatAttrs(e.Attributes))
	}
	if len(doc.Observes) > 0 {
		fmt.Fprintln(w, "observes:")
	}
	for _, x := range doc.Observes {
		fmt.Fprintf(w, "  %s %s observes %s (%s)\n", x.ID, x.Event, x.Object, x.Relation)
	}
}

func formatAttrs(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		switch v := attrs[k].(type) {
		case string:
			parts[i] = k + "=" + strconv.Quote(v)
		default:
			parts[i] = fmt.Sprintf("%s=%v", k, v)
		}
	}
	return " {" + strings.Join(parts, ", ") + "}"
}

func pluralInt64(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return humanize.Comma(n) + " " + unit + "s"
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if h == "" {
		return "-"
	}
	return h
}
