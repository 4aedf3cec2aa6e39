package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormatter renders command results as JSON or human-readable text.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Emit renders data. JSON mode marshals data; text mode calls text.
func (f *OutputFormatter) Emit(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text(f.Writer)
	return nil
}

// formatter builds an OutputFormatter for a command's stdout.
func formatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w}
}

// okResponse is the standard JSON envelope for side-effect commands.
type okResponse struct {
	Status string `json:"status"`
}

// emitOK prints a bare success acknowledgement.
func emitOK(f *OutputFormatter) error {
	return f.Emit(okResponse{Status: "ok"}, func(w io.Writer) {
		fmt.Fprintln(w, "ok")
	})
}
