package snap

import "database/sql"

// Kind classifies a captured filesystem entry.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
	KindLink Kind = "link"
)

// Attr is the identity envelope shared by all entry kinds: ownership,
// timestamps and inode data taken from a link-aware stat.
type Attr struct {
	Mtime int64 // milliseconds since epoch
	Ctime int64 // milliseconds since epoch
	Btime int64 // milliseconds since epoch; 0 when the platform cannot report it
	Mode  uint32
	UID   int64
	GID   int64
	Ino   int64
	Nlink int64
}

// Entry is one row of the persisted snapshot relation. Entries are built
// through the per-kind constructors below, which enforce the field rules:
// Hash is set only for files, Target only for links, Size only for files.
type Entry struct {
	Path string // relative to the scan root, '/'-separated
	Kind Kind
	Size sql.NullInt64
	Attr
	Hash   sql.NullString
	Target sql.NullString
}

// NewFileEntry builds an entry for a regular file with its content digest.
func NewFileEntry(path string, size int64, digest string, attr Attr) *Entry {
	return &Entry{
		Path: path,
		Kind: KindFile,
		Size: sql.NullInt64{Int64: size, Valid: true},
		Attr: attr,
		Hash: sql.NullString{String: digest, Valid: true},
	}
}

// NewDirEntry builds an entry for a directory.
func NewDirEntry(path string, attr Attr) *Entry {
	return &Entry{
		Path: path,
		Kind: KindDir,
		Attr: attr,
	}
}

// NewLinkEntry builds an entry for a symbolic link with its target.
func NewLinkEntry(path string, target string, attr Attr) *Entry {
	return &Entry{
		Path:   path,
		Kind:   KindLink,
		Attr:   attr,
		Target: sql.NullString{String: target, Valid: true},
	}
}
