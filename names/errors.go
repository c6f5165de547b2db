/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork reports a transport failure reaching the encyclopedia.
	ErrNetwork = errors.New("encyclopedia unreachable")
	// ErrUpstreamFormat reports a response that did not have the expected shape.
	ErrUpstreamFormat = errors.New("unexpected encyclopedia response")
	// ErrNotFound reports a page that does not exist.
	ErrNotFound = errors.New("page not found")
	// ErrRaceLost reports that another slot accepted the same name first.
	ErrRaceLost = errors.New("name accepted by another slot first")
	// ErrInputRejected reports a candidate refused by a local check.
	ErrInputRejected = errors.New("name rejected")
)

// FormatError describes which part of an upstream response was malformed.
type FormatError struct {
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: field %q: %v", ErrUpstreamFormat, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: missing field %q", ErrUpstreamFormat, e.Field)
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUpstreamFormat, e.Err}
	}
	return []error{ErrUpstreamFormat}
}
