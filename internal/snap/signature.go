package snap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// SignatureVersion names the canonical row serialization scheme. The field
// order and formatting below are pinned: any change to them must bump this
// string, or two binaries would disagree about what an unchanged tree looks
// like.
const SignatureVersion = "dirsnap-signature-v1"

// ComputeSignature folds every persisted entry and identity row into one
// SHA-256 digest. Entries are read ordered by path (byte-lexicographic),
// users by uid and groups by gid, so the result is independent of traversal
// and insertion order. The digest therefore matches between two runs over
// byte-identical filesystem states regardless of host or storage engine.
func ComputeSignature(store Store) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", SignatureVersion)

	err := store.ForEachEntry(func(e *Entry) error {
		writeEntryRow(h, e)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reading entries: %w", err)
	}

	users, err := store.Users()
	if err != nil {
		return "", fmt.Errorf("reading users: %w", err)
	}
	for i := range users {
		writeUserRow(h, &users[i])
	}

	groups, err := store.Groups()
	if err != nil {
		return "", fmt.Errorf("reading groups: %w", err)
	}
	for i := range groups {
		writeGroupRow(h, &groups[i])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Canonical v1 rows: NUL-separated fields, newline-terminated, numerics in
// base-10 ASCII, null columns as "-".

func writeEntryRow(w io.Writer, e *Entry) {
	size := "-"
	if e.Size.Valid {
		size = fmt.Sprintf("%d", e.Size.Int64)
	}
	hash := "-"
	if e.Hash.Valid {
		hash = e.Hash.String
	}
	target := "-"
	if e.Target.Valid {
		target = e.Target.String
	}
	fmt.Fprintf(w, "entry\x00%s\x00%s\x00%s\x00%d\x00%d\x00%d\x00%d\x00%d\x00%d\x00%d\x00%d\x00%s\x00%s\n",
		e.Path, e.Kind, size, e.Mtime, e.Ctime, e.Btime, e.Mode, e.UID, e.GID, e.Ino, e.Nlink, hash, target)
}

func writeUserRow(w io.Writer, u *User) {
	fmt.Fprintf(w, "user\x00%d\x00%s\x00%d\x00%s\x00%s\x00%s\n",
		u.UID, u.Username, u.GID, u.Gecos, u.HomeDir, u.Shell)
}

func writeGroupRow(w io.Writer, g *Group) {
	fmt.Fprintf(w, "group\x00%d\x00%s\x00%s\n", g.GID, g.Name, g.Members)
}
