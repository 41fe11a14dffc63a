// Package recent remembers the documents opened lately and the node last
// visited in each of them.
package recent

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/grovetools/treenote/pkg/models"
)

// DefaultLimit is the number of documents kept.
const DefaultLimit = 10

var ErrNotFound = errors.New("document not in recent list")

// Document is one entry of the recent list
type Document struct {
	Path      string        `yaml:"path" json:"path"`
	Format    string        `yaml:"format" json:"format"`
	Encrypted bool          `yaml:"encrypted" json:"encrypted"`
	LastNode  models.NodeID `yaml:"last_node,omitempty" json:"last_node,omitempty"`
	OpenCount int           `yaml:"open_count" json:"open_count"`
	FirstSeen time.Time     `yaml:"first_seen" json:"first_seen"`
	LastUsed  time.Time     `yaml:"last_used" json:"last_used"`
}

// Validate checks that the entry can be stored
func (d *Document) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("document path is required")
	}
	if !filepath.IsAbs(d.Path) {
		return fmt.Errorf("document path must be absolute: %s", d.Path)
	}
	return nil
}
