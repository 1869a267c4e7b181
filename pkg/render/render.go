package render

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"text/tabwriter"
)

// Table is what every report-bearing command hands to a writer: a
// header and ordered string rows. Core packages produce ordered data;
// everything about presentation happens here.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t *Table) Add(cols ...string) {
	t.Rows = append(t.Rows, cols)
}

// WriteTab renders an aligned table the way the rest of the tool
// does, two space gutters, no decoration.
func (t *Table) WriteTab(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 4, 2, 1, ' ', 0)

	_, err := io.WriteString(tw, strings.Join(t.Header, "\t")+"\n")
	if err != nil {
		return err
	}

	for _, row := range t.Rows {
		_, err = io.WriteString(tw, strings.Join(row, "\t")+"\n")
		if err != nil {
			return err
		}
	}

	return tw.Flush()
}

// WriteDelimited renders rows joined by an arbitrary delimiter, no
// header alignment, for machine consumption.
func (t *Table) WriteDelimited(w io.Writer, delim string) error {
	bw := bufio.NewWriter(w)

	_, err := bw.WriteString(strings.Join(t.Header, delim) + "\n")
	if err != nil {
		return err
	}

	for _, row := range t.Rows {
		_, err = bw.WriteString(strings.Join(row, delim) + "\n")
		if err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteJSON emits one object per row, each on its own terminated
// line, flushed as it goes so a streaming consumer sees whole records
// promptly.
func (t *Table) WriteJSON(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, row := range t.Rows {
		obj := make(map[string]string, len(t.Header))

		for i, h := range t.Header {
			if i < len(row) {
				obj[strings.ToLower(h)] = row[i]
			}
		}

		data, err := json.Marshal(obj)
		if err != nil {
			return err
		}

		_, err = bw.Write(append(data, '\n'))
		if err != nil {
			return err
		}

		err = bw.Flush()
		if err != nil {
			return err
		}
	}

	return nil
}
