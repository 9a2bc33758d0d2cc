package registryfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type doc struct {
	Items []struct {
		ID string `json:"id" yaml:"id"`
	} `json:"items" yaml:"items"`
}

func TestDecodeByExtension(t *testing.T) {
	var y doc
	if err := Decode([]byte("items:\n  - id: a\n"), ".YML", "items", &y); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var j doc
	if err := Decode([]byte(`{"items":[{"id":"b"}]}`), ".json", "items", &j); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(y.Items) != 1 || y.Items[0].ID != "a" || len(j.Items) != 1 || j.Items[0].ID != "b" {
		t.Fatalf("unexpected decode: %#v %#v", y, j)
	}
}

func TestDecodeWithoutExtensionTriesAll(t *testing.T) {
	var d doc
	if err := Decode([]byte(`{"items":[{"id":"c"}]}`), "", "items", &d); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(d.Items) != 1 || d.Items[0].ID != "c" {
		t.Fatalf("unexpected decode: %#v", d)
	}
}

func TestDecodeErrors(t *testing.T) {
	var d doc
	err := Decode([]byte("items: [unterminated"), ".yaml", "sources", &d)
	if err == nil || !strings.Contains(err.Error(), "decode yaml sources") {
		t.Fatalf("expected yaml decode error, got %v", err)
	}
	err = Decode([]byte("items: []"), ".toml", "publishers", &d)
	if err == nil || !strings.Contains(err.Error(), "publishers file format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var d doc
	if err := Load(filepath.Join(t.TempDir(), "none.yaml"), "sources", &d); err == nil {
		t.Fatalf("expected read error")
	}

	path := filepath.Join(t.TempDir(), "items.yaml")
	if err := os.WriteFile(path, []byte("items:\n  - id: z\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := Load(path, "items", &d); err != nil || d.Items[0].ID != "z" {
		t.Fatalf("Load: %v %#v", err, d)
	}
}
