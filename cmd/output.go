package cmd

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"io"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/pagesnap/api/schemas"
	"github.com/xkilldash9x/pagesnap/internal/config"
	"github.com/xkilldash9x/pagesnap/internal/domstate"
	"github.com/xkilldash9x/pagesnap/internal/observability"
)

var wire = json.ConfigCompatibleWithStandardLibrary

// writeSnapshots writes a single snapshot as an object and several as an array.
func writeSnapshots(w io.Writer, snaps []*schemas.PageSnapshot, out config.OutputConfig, single bool) error {
	if strings.EqualFold(out.Format, "text") {
		for i, ps := range snaps {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := writeText(w, ps); err != nil {
				return err
			}
		}
		return nil
	}

	if single && len(snaps) == 1 {
		return writeJSON(w, snaps[0], out.Pretty)
	}
	return writeJSON(w, snaps, out.Pretty)
}

func writeText(w io.Writer, ps *schemas.PageSnapshot) error {
	state, err := domstate.New(ps.Snapshot, ps.URL, ps.Title,
		domstate.WithLogger(observability.GetLogger()))
	if err != nil {
		return err
	}
	if ps.Title != "" {
		fmt.Fprintf(w, "# %s\n", ps.Title)
	}
	if ps.URL != "" {
		fmt.Fprintf(w, "# %s\n", ps.URL)
	}
	_, err = fmt.Fprintln(w, state.String())
	return err
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	data, err := wire.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if pretty {
		var buf bytes.Buffer
		if err := stdjson.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("failed to indent output: %w", err)
		}
		data = buf.Bytes()
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
