package assets

import "context"

// Store uploads panel images and returns publicly resolvable URLs.
// Existing paths are never overwritten; callers pick collision-resistant
// object names.
type Store interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}
