package snap

// Store is the persistence sink for one snapshot run. The pipeline owns the
// store exclusively for the run's duration. Every method error is fatal to
// the run: a failed store never receives a manifest row.
type Store interface {
	// InsertEntries writes one batch of entries as a single transaction.
	// A batch is never partially visible.
	InsertEntries(entries []*Entry) error

	// PutIdentities writes the user and group rows in one transaction.
	PutIdentities(users []User, groups []Group) error

	// WriteManifest writes the single closing manifest row.
	WriteManifest(m *Manifest) error

	// ReadManifest returns the manifest row, or nil if the snapshot is
	// incomplete (no manifest was ever written).
	ReadManifest() (*Manifest, error)

	// ForEachEntry calls fn for every persisted entry, ordered by path
	// (byte-lexicographic). The ordering is imposed explicitly so that the
	// signature never depends on insertion order.
	ForEachEntry(fn func(*Entry) error) error

	// Users returns all user rows ordered by uid.
	Users() ([]User, error)

	// Groups returns all group rows ordered by gid.
	Groups() ([]Group, error)
}
