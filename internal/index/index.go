package index

import "github.com/starford/saga/internal/models"

// EntityIndex defines the interface for entity indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type EntityIndex interface {
	UpsertEntity(e EntityRow, body string, links []string) error
	DeleteEntity(path string) error
	GetChecksum(path string) (string, error)
	GetEntity(path string) (*EntityRow, error)
	ListEntities(kind string, limit, offset int) ([]EntityRow, int, error)
	Timeline(kind string) ([]EntityRow, error)
	Search(query string, limit int) ([]models.SearchHit, error)
	Backlinks(target string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies EntityIndex at compile time.
var _ EntityIndex = (*DB)(nil)
