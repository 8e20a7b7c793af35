package service

import (
	"fmt"

	"messageboard/storage"
)

// ValidationError marks a request that is missing a required field. Like
// the storage not-found and forbidden errors it is a storage.ClientError.
var ValidationError = fmt.Errorf("%w.validation", storage.ClientError)

type field struct {
	name  string
	value string
}

// requireFields fails with ValidationError naming the first empty field.
func requireFields(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s is required: %w", f.name, ValidationError)
		}
	}
	return nil
}
