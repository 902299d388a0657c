// Package imagestore persists product images and hands back public URLs.
// Two backends exist: Local (filesystem) and JetStream (NATS object store).
package imagestore

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("image not found")

// sanitizeFilename reduces filename to its base name over [A-Za-z0-9._-], so
// the object name can be used as a URL path segment without escaping.
func sanitizeFilename(filename string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, filepath.Base(filepath.Clean(filename)))
	if strings.Trim(clean, ".") == "" {
		return "unnamed"
	}
	return clean
}

// objectName builds a unique storage key that keeps the original name readable.
func objectName(original string) string {
	return uuid.NewString() + "-" + sanitizeFilename(original)
}

// validName rejects names that could escape the store's namespace.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`)
}

func publicURL(prefix, name string) string {
	return strings.TrimRight(prefix, "/") + "/" + name
}
