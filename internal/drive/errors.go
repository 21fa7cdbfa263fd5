package drive

import "errors"

// Sentinel errors returned by the drive and auth services. Handlers map
// these onto HTTP status codes; everything else is treated as internal.
var (
	// ErrConflict signals a duplicate registration.
	ErrConflict = errors.New("already exists")

	// ErrUnauthorized signals bad credentials or an invalid token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden signals a download of a non-shared file by a non-owner.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound covers missing entities, entities owned by someone else
	// (ownership failures are deliberately indistinguishable from absence)
	// and metadata rows whose blob is gone from disk.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParent signals a create/reparent targeting a folder that
	// does not exist or is not owned by the caller.
	ErrInvalidParent = errors.New("invalid parent folder")

	// ErrInvalidName signals an empty folder name after trimming.
	ErrInvalidName = errors.New("invalid name")

	// ErrStorage wraps blob read/write failures not otherwise classified.
	ErrStorage = errors.New("storage failure")
)
