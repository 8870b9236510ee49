// Package manifest records how an export was produced in a JSON sidecar
// next to the output file.
package manifest

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/tdmraster/internal/geometry"
)

const Suffix = ".json"

type Manifest struct {
	Output    string          `json:"output"`
	Kind      string          `json:"kind"`
	File      string          `json:"file"`
	Encoding  string          `json:"encoding"`
	Invert    bool            `json:"invert"`
	Params    geometry.Params `json:"params"`
	Channels  []int           `json:"channels,omitempty"`
	Lines     int64           `json:"lines"`
	Canceled  bool            `json:"canceled"`
	Timestamp time.Time       `json:"timestamp"`
}

// PathFor is the sidecar path of an export.
func PathFor(output string) string {
	return output + Suffix
}

func Encode(w io.Writer, m *Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Write stores m next to m.Output and returns the sidecar path.
func Write(m *Manifest) (string, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	path := PathFor(m.Output)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Encode(f, m); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns the manifests found in dir, oldest first. JSON files that
// are not manifests are skipped.
func List(dir string) ([]Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Manifest{}, nil
		}
		return nil, err
	}

	out := make([]Manifest, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Suffix) {
			continue
		}
		m, err := Read(filepath.Join(dir, entry.Name()))
		if err != nil || m.Output == "" {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
