package ports

import "context"

// Position records how far a followed file has been read.
type Position struct {
	// Path is the followed file
	Path string `json:"path"`

	// Offset is the byte offset of the first unread line
	Offset int64 `json:"offset"`

	// Inode identifies the file so rotation can be detected
	Inode uint64 `json:"inode,omitempty"`
}

// PositionRepository handles follow-offset persistence across restarts.
// Implementations persist positions atomically.
type PositionRepository interface {
	// Load retrieves the saved positions keyed by path.
	// Returns an empty map and nil error if nothing was saved yet.
	Load(ctx context.Context) (map[string]Position, error)

	// Save persists all positions atomically.
	Save(ctx context.Context, positions map[string]Position) error
}
