// Package identity maps numeric owner and group IDs to names and back.
//
// Lookups go through a Cache that remembers every answer, including
// failures, for the life of the process. A failed lookup degrades to the
// numeric ID; it never aborts an archive or extract operation.
package identity

import "errors"

// ErrUnsupported is returned by resolvers on hosts without an account database.
var ErrUnsupported = errors.New("identity: lookups not supported on this platform")

// Resolver answers identity lookups against some account database.
//
// Implementations must be safe for concurrent use.
type Resolver interface {
	// UserName returns the name of the user with the given ID.
	UserName(uid int) (string, error)

	// GroupName returns the name of the group with the given ID.
	GroupName(gid int) (string, error)

	// UserID returns the ID of the named user.
	UserID(name string) (int, error)

	// GroupID returns the ID of the named group.
	GroupID(name string) (int, error)
}
