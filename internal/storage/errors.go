// Package storage defines the error vocabulary shared by persistence
// implementations. Domain services discriminate on these types instead of
// inspecting vendor-specific SQLSTATE codes.
package storage

import "fmt"

// UniqueViolationError reports a uniqueness constraint rejected by the
// datastore, identified by constraint name.
type UniqueViolationError struct {
	Constraint string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint violated: %s", e.Constraint)
}

// ForeignKeyViolationError reports a referential integrity rejection.
type ForeignKeyViolationError struct {
	Constraint string
}

func (e *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("foreign key constraint violated: %s", e.Constraint)
}
