package report

import (
	"encoding/json"
	"io"

	"github.com/tphakala/perdiem-go/internal/reconcile"
	"gopkg.in/yaml.v3"
)

// WriteJSON writes the full report model as indented JSON.
func WriteJSON(w io.Writer, r *reconcile.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteYAML writes the full report model as YAML.
func WriteYAML(w io.Writer, r *reconcile.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
