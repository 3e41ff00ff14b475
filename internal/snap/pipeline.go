package snap

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
)

// DefaultBatchSize is the number of entry records buffered in memory before
// they are flushed as one transaction. It bounds peak memory independent of
// tree size and amortizes the per-transaction write cost.
const DefaultBatchSize = 200

// progressInterval is how many captured entries pass between two Reporter
// calls.
const progressInterval = 1000

// Pipeline drives one snapshot run: it consumes walker output, captures
// per-entry metadata, keeps the running statistics, persists entries in
// batches, and closes the run with the signature and manifest.
type Pipeline struct {
	store    Store
	walker   Walker
	capture  Capturer
	identity IdentitySource
	reporter Reporter
	logger   Logger
	clock    Clock
	idgen    IDGenerator

	name      string
	excludes  []string
	batchSize int
}

// NewPipeline wires a pipeline from its collaborators.
// name is the user-chosen snapshot name recorded in the manifest; excludes is
// the raw exclusion pattern list, recorded verbatim for later auditing.
func NewPipeline(store Store, walker Walker, capture Capturer, identity IdentitySource, reporter Reporter, logger Logger, clock Clock, idgen IDGenerator, name string, excludes []string) *Pipeline {
	return &Pipeline{
		store:     store,
		walker:    walker,
		capture:   capture,
		identity:  identity,
		reporter:  reporter,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		name:      name,
		excludes:  excludes,
		batchSize: DefaultBatchSize,
	}
}

// SetBatchSize overrides the flush threshold. Intended for tests.
func (p *Pipeline) SetBatchSize(n int) {
	if n > 0 {
		p.batchSize = n
	}
}

// Run scans the tree rooted at root and persists the complete snapshot.
// Per-entry and per-directory failures are absorbed into the error counter;
// any store or signature failure aborts the run before the manifest is
// written, leaving the store marked incomplete.
func (p *Pipeline) Run(root string) (*Manifest, error) {
	root = filepath.Clean(root)
	start := p.clock.Now()

	var stats Stats
	batch := make([]*Entry, 0, p.batchSize)
	uids := make(map[int64]struct{})
	gids := make(map[int64]struct{})

	p.logger.Info("scan started", "root", root)

	for path, err := range p.walker.Walk(root, root) {
		if err != nil {
			// One unreadable directory: its subtree is simply absent.
			stats.Errors++
			p.logger.Warn("directory listing failed", "error", err)
			continue
		}
		if path == root {
			// The root is discovered but never persisted.
			continue
		}

		entry, err := p.capture.Capture(path)
		if err != nil {
			stats.Errors++
			p.logger.Debug("entry skipped", "path", path, "error", err)
			continue
		}
		if entry == nil {
			// Device, socket or FIFO: not part of the snapshot.
			continue
		}

		stats.note(entry)
		uids[entry.UID] = struct{}{}
		gids[entry.GID] = struct{}{}

		batch = append(batch, entry)
		if len(batch) >= p.batchSize {
			if err := p.store.InsertEntries(batch); err != nil {
				return nil, fmt.Errorf("flushing entry batch: %w", err)
			}
			batch = batch[:0]
		}

		if stats.Entries%progressInterval == 0 {
			p.reporter.Progress(stats)
		}
	}

	if len(batch) > 0 {
		if err := p.store.InsertEntries(batch); err != nil {
			return nil, fmt.Errorf("flushing final entry batch: %w", err)
		}
	}

	users, groups := p.resolveIdentities(uids, gids)
	if err := p.store.PutIdentities(users, groups); err != nil {
		return nil, fmt.Errorf("persisting identities: %w", err)
	}

	signature, err := ComputeSignature(p.store)
	if err != nil {
		return nil, fmt.Errorf("computing signature: %w", err)
	}

	end := p.clock.Now()
	zone, _ := start.Zone()
	excludeJSON, err := json.Marshal(p.excludes)
	if err != nil {
		return nil, fmt.Errorf("encoding exclude list: %w", err)
	}

	manifest := &Manifest{
		Version:      FormatVersion,
		SnapshotID:   p.idgen.New(),
		SnapshotName: p.name,
		RootPath:     root,
		ScanStart:    start.UnixMilli(),
		ScanEnd:      end.UnixMilli(),
		ScanDuration: end.Sub(start).Milliseconds(),
		Stats:        stats,
		OSPlatform:   runtime.GOOS,
		TimeZone:     zone,
		Signature:    signature,
		ExcludeJSON:  string(excludeJSON),
	}

	if err := p.store.WriteManifest(manifest); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	p.reporter.Progress(stats)
	p.logger.Info("scan complete",
		"entries", stats.Entries,
		"files", stats.Files,
		"dirs", stats.Dirs,
		"links", stats.Links,
		"size", stats.Size,
		"errors", stats.Errors,
		"signature", signature)

	return manifest, nil
}

// resolveIdentities maps every observed uid/gid to an identity row. IDs the
// OS directory does not know get a synthetic placeholder so the identity
// table always covers the ownership of every persisted entry.
func (p *Pipeline) resolveIdentities(uids, gids map[int64]struct{}) ([]User, []Group) {
	users := make([]User, 0, len(uids))
	for uid := range uids {
		u, ok := p.identity.User(uid)
		if !ok {
			u = User{UID: uid, Username: fmt.Sprintf("uid-%d", uid)}
			p.logger.Debug("unknown uid, recording placeholder", "uid", uid)
		}
		users = append(users, u)
	}

	groups := make([]Group, 0, len(gids))
	for gid := range gids {
		g, ok := p.identity.Group(gid)
		if !ok {
			g = Group{GID: gid, Name: fmt.Sprintf("gid-%d", gid)}
			p.logger.Debug("unknown gid, recording placeholder", "gid", gid)
		}
		groups = append(groups, g)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].UID < users[j].UID })
	sort.Slice(groups, func(i, j int) bool { return groups[i].GID < groups[j].GID })
	return users, groups
}
