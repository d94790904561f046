package registry

import "errors"

var (
	// ErrNoActiveAlgorithm means no ACTIVE version (or no active parameter
	// set under it) exists for the requested key. Callers are expected to
	// degrade gracefully, not crash.
	ErrNoActiveAlgorithm = errors.New("registry: no active algorithm")

	// ErrVersionNotFound is returned by activation of an unknown version.
	// The store is left untouched.
	ErrVersionNotFound = errors.New("registry: version not found")

	// ErrParamsNotFound is returned by activation of an unknown parameter
	// set.
	ErrParamsNotFound = errors.New("registry: params not found")

	// ErrInvalidParams means the parameter document failed its per-algorithm
	// schema validation.
	ErrInvalidParams = errors.New("registry: params failed schema validation")

	// ErrChecksumDrift means the stored parameter document no longer matches
	// its recorded content hash.
	ErrChecksumDrift = errors.New("registry: params checksum drift")

	// ErrUnknownAlgoKey is returned for keys outside the closed algorithm
	// set.
	ErrUnknownAlgoKey = errors.New("registry: unknown algo key")
)
