// Package registryfile decodes the YAML or JSON registries shared by the
// sources and publishers configuration.
package registryfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decoder struct {
	name string
	ext  string
	fn   func([]byte, any) error
}

var decoders = []decoder{
	{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
	{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
	{name: "json", ext: ".json", fn: json.Unmarshal},
}

// Decode unmarshals data into out using the decoder picked by ext.
// An empty ext tries every decoder in turn. kind names the registry in errors.
func Decode(data []byte, ext, kind string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if err := d.fn(data, out); err != nil {
			lastErr = fmt.Errorf("decode %s %s: %w", d.name, kind, err)
			continue
		}
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("%s file format %q not recognized (expected YAML or JSON)", kind, ext)
}

// Load reads path and decodes it by its extension.
func Load(path, kind string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", kind, err)
	}
	return Decode(data, filepath.Ext(path), kind, out)
}
