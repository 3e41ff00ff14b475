package snap

// Stats holds the running counters for one snapshot run. They are mutated
// only by the pipeline and only grow during a run.
type Stats struct {
	Entries int64
	Files   int64
	Dirs    int64
	Links   int64
	Size    int64 // cumulative size of file entries, bytes
	Errors  int64
}

// note counts a captured entry.
func (s *Stats) note(e *Entry) {
	s.Entries++
	switch e.Kind {
	case KindFile:
		s.Files++
		s.Size += e.Size.Int64
	case KindDir:
		s.Dirs++
	case KindLink:
		s.Links++
	}
}
