package schema

import "fmt"

// DuplicateTableError is returned by Build when two tables share a name.
type DuplicateTableError struct {
	Name string
}

func (e *DuplicateTableError) Error() string {
	return fmt.Sprintf("duplicate table %q in schema", e.Name)
}

// InvalidTableError reports a table that breaks a schema invariant.
type InvalidTableError struct {
	Table  string
	Reason string
}

func (e *InvalidTableError) Error() string {
	return fmt.Sprintf("invalid table %q: %s", e.Table, e.Reason)
}

// LoadError wraps a failure to read or decode a schema asset.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load schema %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// UnknownVersionError is returned when no bundled schema matches a version.
type UnknownVersionError struct {
	Version   string
	Available []string
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("no bundled schema for osquery %s (available: %v)", e.Version, e.Available)
}
