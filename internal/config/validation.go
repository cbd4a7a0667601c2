package config

import (
	"errors"
	"fmt"
)

// Validation errors for command-line input.
var (
	ErrInvalidName   = errors.New("invalid database name")
	ErrInvalidPeerID = errors.New("invalid dialog id")
)

// MinNameLength is the shortest accepted database name.
const MinNameLength = 2

// ValidateName checks the positional database name.
func ValidateName(name string) error {
	if err := validate.Var(name, fmt.Sprintf("min=%d,excludesall=/\\", MinNameLength)); err != nil {
		return fmt.Errorf("%w %q: must be at least %d characters without path separators", ErrInvalidName, name, MinNameLength)
	}
	return nil
}

// ValidatePeerID checks a dialog id as printed by the dialog listing:
// 32 hexadecimal characters without the leading '$'.
func ValidatePeerID(id string) error {
	if err := validate.Var(id, "len=32,hexadecimal"); err != nil {
		return fmt.Errorf("%w %q: expected 32 hexadecimal characters", ErrInvalidPeerID, id)
	}
	return nil
}
