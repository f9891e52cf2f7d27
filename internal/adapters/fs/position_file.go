package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/bft-labs/ddship/internal/ports"
)

const positionFileName = "positions.json"

// PositionFileRepository implements ports.PositionRepository using a JSON file.
type PositionFileRepository struct {
	dir string
}

// NewPositionFileRepository creates a repository storing positions in dir.
func NewPositionFileRepository(dir string) *PositionFileRepository {
	return &PositionFileRepository{dir: dir}
}

// Load retrieves the saved positions keyed by path.
// Returns an empty map and nil error if no position file exists.
func (r *PositionFileRepository) Load(ctx context.Context) (map[string]ports.Position, error) {
	positions := make(map[string]ports.Position)

	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return positions, nil
		}
		return nil, err
	}

	var list []ports.Position
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	for _, p := range list {
		positions[p.Path] = p
	}
	return positions, nil
}

// Save persists all positions atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *PositionFileRepository) Save(ctx context.Context, positions map[string]ports.Position) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	list := make([]ports.Position, 0, len(positions))
	for path, p := range positions {
		p.Path = path
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the position file.
func (r *PositionFileRepository) Path() string {
	return filepath.Join(r.dir, positionFileName)
}
