package snap

// FormatVersion identifies the snapshot schema and canonical serialization
// in use. Bump only when either changes.
const FormatVersion = 1

// Manifest is the one-row closing record of a completed snapshot run.
// Its absence marks the snapshot as incomplete: it is written exactly once,
// after every entry and identity row has been durably committed and the
// signature computed over them.
type Manifest struct {
	Version      int64
	SnapshotID   string // UUID assigned at run start
	SnapshotName string
	RootPath     string // absolute
	ScanStart    int64  // milliseconds since epoch
	ScanEnd      int64  // milliseconds since epoch
	ScanDuration int64  // milliseconds
	Stats        Stats
	OSPlatform   string
	TimeZone     string
	Signature    string
	ExcludeJSON  string // the exclusion pattern list, JSON-encoded
}

// User is a point-in-time copy of one OS user directory entry.
type User struct {
	UID      int64
	Username string
	GID      int64
	Gecos    string
	HomeDir  string
	Shell    string
}

// Group is a point-in-time copy of one OS group directory entry.
type Group struct {
	GID     int64
	Name    string
	Members string // comma-separated login names
}
