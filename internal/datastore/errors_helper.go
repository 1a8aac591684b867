package datastore

import (
	"github.com/tphakala/lyricgraph/internal/errors"
)

// dbError creates a categorized database error with context pairs.
func dbError(err error, operation string, context ...any) error {
	return withContext(errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation), context).
		Build()
}

// ingestError creates an ingestion error for a failed table write.
func ingestError(err error, table string, context ...any) error {
	return withContext(errors.New(err).
		Component("datastore").
		Category(errors.CategoryIngestion).
		Context("table", table), context).
		Build()
}

// queryError creates a graph query error.
func queryError(err error, query string, context ...any) error {
	return withContext(errors.New(err).
		Component("datastore").
		Category(errors.CategoryQuery).
		Context("query", query), context).
		Build()
}

// notFoundError creates a not found error.
func notFoundError(resource, identifier string) error {
	return errors.Newf("%s not found", resource).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("resource", resource).
		Context("identifier", identifier).
		Build()
}

func errNotOpen() error {
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryState).
		Build()
}

func withContext(b *errors.ErrorBuilder, context []any) *errors.ErrorBuilder {
	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			b = b.Context(key, context[i+1])
		}
	}
	return b
}
