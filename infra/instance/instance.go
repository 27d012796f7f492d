// Package instance reads scheduling instances from JSON or YAML files.
package instance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/ecas/core/model"
)

// Format names an instance encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatOf selects the format from a file extension. Without a known
// extension the content decides: a document opening with '{' is JSON,
// anything else is read as YAML.
func FormatOf(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON
	case ".yaml", ".yml":
		return YAML
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return JSON
	}
	return YAML
}

// Load reads and validates the instance stored at path.
func Load(path string) (*model.Instance, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	format := FormatOf(path, data)
	inst, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, format, fmt.Errorf("%s: %w", path, err)
	}
	return inst, format, nil
}

// Decode parses an instance and validates it. Unknown keys are rejected.
// Syntax and type errors are reported as *model.MalformedInstanceError.
func Decode(r io.Reader, format Format) (*model.Instance, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var inst model.Instance
	switch format {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&inst)
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&inst)
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
	default:
		return nil, fmt.Errorf("unsupported instance format: %q", format)
	}
	if err != nil {
		return nil, &model.MalformedInstanceError{Entity: "instance", Reason: err.Error()}
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Write encodes inst to w in the given format.
func Write(w io.Writer, inst *model.Instance, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(inst)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(inst); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported instance format: %q", format)
	}
}
