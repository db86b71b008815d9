// Package errors holds the sentinel errors shared by every recipe stage.
package errors

import "errors"

var (
	// Configuration errors ⚙️
	ErrUnknownOption      = errors.New("❌ unknown option")
	ErrInvalidOptionValue = errors.New("❌ invalid option value")
	ErrUnknownSetting     = errors.New("❌ unknown setting")
	ErrInvalidIdentity    = errors.New("❌ invalid package identity")

	// Fetch errors 📥
	ErrFetchFailed        = errors.New("❌ source fetch failed")
	ErrChecksumMismatch   = errors.New("❌ checksum mismatch")
	ErrUnsupportedArchive = errors.New("❌ unsupported archive format")

	// Build errors 🔨
	ErrBuildToolFailed = errors.New("❌ build tool failed")

	// Packaging errors 📦
	ErrPackageFailed  = errors.New("❌ packaging failed")
	ErrPackageInvalid = errors.New("❌ package tree invalid")
	ErrPackageMissing = errors.New("❌ package not built")

	// Lifecycle errors 🔁
	ErrInvalidTransition = errors.New("❌ invalid lifecycle transition")
	ErrLocked            = errors.New("❌ package folder locked by another process")
)
