package pe

import "errors"

// Sentinel errors, named after saferwall/pe's helper.go Err* variables,
// generalized to a live-memory view instead of an on-disk file.
var (
	ErrDOSMagicNotFound    = errors.New("weevil/pe: DOS magic not found")
	ErrNTSignatureNotFound = errors.New("weevil/pe: NT signature not found")
	ErrOptionalHeaderMagic = errors.New("weevil/pe: PE32+ optional header magic not found")
	// ErrUnsupportedMachine is returned for any FileHeader.Machine other
	// than AMD64 — see Non-goals: only x86-64 is supported.
	ErrUnsupportedMachine = errors.New("weevil/pe: unsupported machine, only AMD64 is supported")
)
