package testutil

import (
	"dirsnap/internal/identity"
	"dirsnap/internal/snap"
)

// FixtureIdentities returns a small, fixed identity directory for tests.
func FixtureIdentities() *identity.Directory {
	return identity.NewDirectory(
		[]snap.User{
			{UID: 0, Username: "root", GID: 0, Gecos: "root", HomeDir: "/root", Shell: "/bin/bash"},
			{UID: 1000, Username: "alice", GID: 1000, Gecos: "Alice", HomeDir: "/home/alice", Shell: "/bin/zsh"},
		},
		[]snap.Group{
			{GID: 0, Name: "root", Members: ""},
			{GID: 1000, Name: "alice", Members: "alice"},
		},
	)
}

// EmptyIdentities returns an identity directory that knows no IDs, so every
// observed owner gets a placeholder row.
func EmptyIdentities() *identity.Directory {
	return identity.NewDirectory(nil, nil)
}
