package store

import (
	"errors"

	"github.com/yourorg/docpilot/pkg/types"
)

// ErrNotFound is returned when a schema does not exist.
var ErrNotFound = errors.New("not found")

// Store persists parsed schemas and the query history recorded against them.
type Store interface {
	SaveSchema(doc *types.ParsedDocumentation) error
	GetSchema(id string) (*types.ParsedDocumentation, error)
	ListSchemas() ([]types.ParsedDocumentation, error)
	DeleteSchema(id string) error

	SaveQuery(rec *types.QueryRecord) error
	ListQueries(schemaID string, limit int) ([]types.QueryRecord, error)

	Close() error
}
