// Package schemaio reads and writes form schemas as JSON or YAML documents.
// Every load validates before returning so malformed definitions never reach
// the compiler.
package schemaio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/foundersclub/formflow/pkg/model"
)

// Format identifies a serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath infers the format from a file extension. JSON is the
// fallback for unknown extensions.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses a schema document in the given format and validates it.
func Decode(r io.Reader, format Format) (model.FormSchema, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("schemaio: read: %w", err)
	}

	var schema model.FormSchema
	switch format {
	case FormatYAML:
		// Route through JSON so the model's strict payload checks apply to
		// YAML documents too.
		jsonBytes, err := yamlToJSON(raw)
		if err != nil {
			return model.FormSchema{}, fmt.Errorf("schemaio: parse yaml: %w", err)
		}
		raw = jsonBytes
		fallthrough
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&schema); err != nil {
			return model.FormSchema{}, fmt.Errorf("schemaio: parse: %w", err)
		}
	default:
		return model.FormSchema{}, fmt.Errorf("schemaio: unsupported format %q", format)
	}

	if err := schema.Validate(); err != nil {
		return model.FormSchema{}, err
	}
	return schema, nil
}

// Encode writes a schema document in the given format.
func Encode(w io.Writer, schema model.FormSchema, format Format) error {
	switch format {
	case FormatYAML:
		jsonBytes, err := json.Marshal(schema)
		if err != nil {
			return fmt.Errorf("schemaio: marshal: %w", err)
		}
		var doc any
		if err := yaml.Unmarshal(jsonBytes, &doc); err != nil {
			return fmt.Errorf("schemaio: convert: %w", err)
		}
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("schemaio: encode yaml: %w", err)
		}
		return encoder.Close()
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(schema); err != nil {
			return fmt.Errorf("schemaio: encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("schemaio: unsupported format %q", format)
	}
}

// LoadFile reads and validates a schema from disk, inferring the format from
// the extension.
func LoadFile(path string) (model.FormSchema, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("schemaio: open %s: %w", path, err)
	}
	defer file.Close()
	return Decode(file, FormatForPath(path))
}

// LoadFS reads and validates a schema from an fs.FS.
func LoadFS(files fs.FS, path string) (model.FormSchema, error) {
	file, err := files.Open(path)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("schemaio: open %s: %w", path, err)
	}
	defer file.Close()
	return Decode(file, FormatForPath(path))
}

// SaveFile writes a schema to disk, inferring the format from the extension.
func SaveFile(path string, schema model.FormSchema) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("schemaio: create %s: %w", path, err)
	}
	defer file.Close()
	return Encode(file, schema, FormatForPath(path))
}

// yamlToJSON converts a YAML document into JSON bytes, normalising map keys
// to strings on the way.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[fmt.Sprint(key)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
