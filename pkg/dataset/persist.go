package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
)

// FileName is the compressed dataset inside a measurement directory.
const FileName = "dataset.json.sz"

type fileVariable struct {
	Name  string        `json:"name"`
	Dims  []string      `json:"dims"`
	Shape []int         `json:"shape"`
	Real  []float64     `json:"real"`
	Imag  []float64     `json:"imag"`
	Attrs VariableAttrs `json:"attrs"`
}

type fileDataset struct {
	Node   string            `json:"node"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	Coords []Coordinate      `json:"coords"`
	Vars   []fileVariable    `json:"data_vars"`
}

// ToRealPlanes splits complex data into real and imaginary planes.
func ToRealPlanes(data []complex128) (re, im []float64) {
	re = make([]float64, len(data))
	im = make([]float64, len(data))
	for i, z := range data {
		re[i], im[i] = real(z), imag(z)
	}
	return re, im
}

// FromRealPlanes joins real and imaginary planes.
func FromRealPlanes(re, im []float64) ([]complex128, error) {
	if len(re) != len(im) {
		return nil, fmt.Errorf("real plane has %d points, imaginary plane %d", len(re), len(im))
	}
	out := make([]complex128, len(re))
	for i := range re {
		out[i] = complex(re[i], im[i])
	}
	return out, nil
}

// Save writes ds into dir as snappy-compressed JSON.
func Save(dir string, ds *Dataset) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	f := fileDataset{Node: ds.Node, Attrs: ds.Attrs, Coords: ds.coords}
	for _, v := range ds.vars {
		re, im := ToRealPlanes(v.Data)
		f.Vars = append(f.Vars, fileVariable{
			Name: v.Name, Dims: v.Dims, Shape: v.Shape, Real: re, Imag: im, Attrs: v.Attrs,
		})
	}

	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("failed to marshal dataset: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, snappy.Encode(nil, data), 0o644); err != nil {
		return "", fmt.Errorf("failed to write dataset: %w", err)
	}
	return path, nil
}

// Load reads a dataset written by Save from dir.
func Load(dir string) (*Dataset, error) {
	compressed, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress dataset: %w", err)
	}

	var f fileDataset
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	ds := New(f.Node)
	for k, v := range f.Attrs {
		ds.Attrs[k] = v
	}
	for _, c := range f.Coords {
		if err := ds.AddCoordinate(c); err != nil {
			return nil, err
		}
	}
	for _, fv := range f.Vars {
		values, err := FromRealPlanes(fv.Real, fv.Imag)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", fv.Name, err)
		}
		if err := ds.AddVariable(Variable{
			Name: fv.Name, Dims: fv.Dims, Shape: fv.Shape, Data: values, Attrs: fv.Attrs,
		}); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// NewDataPath returns <root>/<YYYYMMDD>/<YYYYMMDD-HHMMSS-mmm>-<id6>-<node>.
func NewDataPath(root, node string, now time.Time, id uuid.UUID) string {
	day := now.Format("20060102")
	timeID := fmt.Sprintf("%s-%03d", now.Format("20060102-150405"), now.Nanosecond()/int(time.Millisecond))
	return filepath.Join(root, day, fmt.Sprintf("%s-%s-%s", timeID, id.String()[:6], node))
}
