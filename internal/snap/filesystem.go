package snap

import "iter"

// Walker enumerates a directory tree. The sequence yields surviving absolute
// paths in depth-first pre-order, including the root itself (the pipeline
// filters the root out). A yielded non-nil error stands for one failed
// directory listing; the walk continues elsewhere. The sequence is single
// pass: it cannot be rewound.
type Walker interface {
	Walk(dir, root string) iter.Seq2[string, error]
}

// Capturer turns one absolute path into a metadata record. A nil entry with a
// nil error means the path is of a kind the snapshot ignores (device, socket,
// FIFO). An error is a per-entry soft failure: the caller counts it and moves
// on, it never aborts the run.
type Capturer interface {
	Capture(absPath string) (*Entry, error)
}

// Hasher produces the content digest of a file.
type Hasher interface {
	Sum(path string) (string, error)
}

// IdentitySource resolves numeric owner IDs against the OS identity
// directory. Implementations are read-only and loaded once, so lookups are
// deterministic for the duration of a run.
type IdentitySource interface {
	User(uid int64) (User, bool)
	Group(gid int64) (Group, bool)
}

// Reporter receives progress updates during a run. Implementations must not
// retain the Stats value past the call.
type Reporter interface {
	Progress(stats Stats)
}

// NopReporter discards progress updates.
type NopReporter struct{}

func (NopReporter) Progress(Stats) {}
