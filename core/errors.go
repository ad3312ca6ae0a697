package core

import "fmt"

// ConfigurationError is a fatal pre-flight problem with an export request.
// Nothing is fetched or written once one is returned.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ContentFetchError means a post's content could not be retrieved.
type ContentFetchError struct {
	PostID string
	URL    string
	Err    error
}

func (e *ContentFetchError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *ContentFetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ContentParseError means a post's content was retrieved but could not be normalized.
type ContentParseError struct {
	PostID string
	Err    error
}

func (e *ContentParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("parse post %s: %v", e.PostID, e.Err)
}

func (e *ContentParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PackagingError means an output file could not be built or written.
type PackagingError struct {
	File   string
	Format Format
	Err    error
}

func (e *PackagingError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("package %s (%s): %v", e.File, e.Format, e.Err)
}

func (e *PackagingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CoverError means the cover image could not be obtained. In
// publication_author mode it only downgrades the cover to text.
type CoverError struct {
	Source string
	Err    error
}

func (e *CoverError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("cover %s: %v", e.Source, e.Err)
}

func (e *CoverError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
