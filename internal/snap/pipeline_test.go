package snap_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dirsnap/internal/fs"
	"dirsnap/internal/snap"
	"dirsnap/internal/testutil"
)

// newPipeline wires a pipeline over the real filesystem with fixture
// identities and a deterministic clock.
func newPipeline(t *testing.T, store snap.Store, root string, excludes []string) *snap.Pipeline {
	t.Helper()
	matcher, err := fs.NewExcludeMatcher(excludes)
	if err != nil {
		t.Fatalf("NewExcludeMatcher() error = %v", err)
	}
	return snap.NewPipeline(
		store,
		fs.NewTreeWalker(matcher),
		fs.NewOSCapturer(root, fs.NewSHA256Hasher()),
		testutil.FixtureIdentities(),
		snap.NopReporter{},
		snap.NewNopLogger(),
		&testutil.FixedClock{Time: time.UnixMilli(1700000000000), Step: time.Second},
		&testutil.SequenceIDs{},
		"test",
		excludes,
	)
}

// scenarioTree builds the reference tree: a.txt ("hi"), sub/b.txt ("bye"),
// sub/empty, and an excluded node_modules/x.js.
func scenarioTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFile(t, root, "a.txt", "hi")
	testutil.WriteFile(t, root, "sub/b.txt", "bye")
	testutil.Mkdir(t, root, "sub/empty")
	testutil.WriteFile(t, root, "node_modules/x.js", "junk")
	return root
}

func TestPipeline_Run(t *testing.T) {
	t.Run("reference scenario", func(t *testing.T) {
		root := scenarioTree(t)
		store := testutil.NewTestStore(t)

		manifest, err := newPipeline(t, store, root, []string{"**/node_modules/**"}).Run(root)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if manifest.Stats.Entries != 4 {
			t.Errorf("Entries = %d, want 4", manifest.Stats.Entries)
		}
		if manifest.Stats.Files != 2 {
			t.Errorf("Files = %d, want 2", manifest.Stats.Files)
		}
		if manifest.Stats.Dirs != 2 {
			t.Errorf("Dirs = %d, want 2", manifest.Stats.Dirs)
		}
		if manifest.Stats.Links != 0 {
			t.Errorf("Links = %d, want 0", manifest.Stats.Links)
		}
		if manifest.Stats.Size != 5 {
			t.Errorf("Size = %d, want 5", manifest.Stats.Size)
		}
		if manifest.Stats.Errors != 0 {
			t.Errorf("Errors = %d, want 0", manifest.Stats.Errors)
		}

		var paths []string
		if err := store.ForEachEntry(func(e *snap.Entry) error {
			paths = append(paths, e.Path)
			return nil
		}); err != nil {
			t.Fatalf("ForEachEntry() error = %v", err)
		}

		want := []string{"a.txt", "sub", "sub/b.txt", "sub/empty"}
		if len(paths) != len(want) {
			t.Fatalf("persisted paths = %v, want %v", paths, want)
		}
		for i := range want {
			if paths[i] != want[i] {
				t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
			}
		}
	})

	t.Run("two runs over an unchanged tree produce the same signature", func(t *testing.T) {
		root := scenarioTree(t)
		excludes := []string{"**/node_modules/**"}

		first, err := newPipeline(t, testutil.NewTestStore(t), root, excludes).Run(root)
		if err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		second, err := newPipeline(t, testutil.NewTestStore(t), root, excludes).Run(root)
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}

		if first.Signature == "" {
			t.Fatal("empty signature")
		}
		if first.Signature != second.Signature {
			t.Errorf("signatures differ: %s vs %s", first.Signature, second.Signature)
		}
	})

	t.Run("counter identities hold", func(t *testing.T) {
		root := scenarioTree(t)
		testutil.Symlink(t, root, "l", "a.txt")
		store := testutil.NewTestStore(t)

		manifest, err := newPipeline(t, store, root, nil).Run(root)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		s := manifest.Stats
		if s.Entries != s.Files+s.Dirs+s.Links {
			t.Errorf("Entries = %d, want Files+Dirs+Links = %d", s.Entries, s.Files+s.Dirs+s.Links)
		}

		var sum int64
		if err := store.ForEachEntry(func(e *snap.Entry) error {
			if e.Kind == snap.KindFile {
				sum += e.Size.Int64
			}
			return nil
		}); err != nil {
			t.Fatalf("ForEachEntry() error = %v", err)
		}
		if s.Size != sum {
			t.Errorf("Size = %d, want sum of file sizes %d", s.Size, sum)
		}
	})

	t.Run("per-kind field invariants hold for every persisted row", func(t *testing.T) {
		root := scenarioTree(t)
		testutil.Symlink(t, root, "l", "a.txt")
		store := testutil.NewTestStore(t)

		if _, err := newPipeline(t, store, root, nil).Run(root); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if err := store.ForEachEntry(func(e *snap.Entry) error {
			switch e.Kind {
			case snap.KindFile:
				if !e.Hash.Valid || e.Target.Valid || !e.Size.Valid {
					t.Errorf("file %s violates invariants: %+v", e.Path, e)
				}
			case snap.KindDir:
				if e.Hash.Valid || e.Target.Valid || e.Size.Valid {
					t.Errorf("dir %s violates invariants: %+v", e.Path, e)
				}
			case snap.KindLink:
				if e.Hash.Valid || !e.Target.Valid || e.Size.Valid {
					t.Errorf("link %s violates invariants: %+v", e.Path, e)
				}
			}
			return nil
		}); err != nil {
			t.Fatalf("ForEachEntry() error = %v", err)
		}
	})

	t.Run("root directory is never persisted", func(t *testing.T) {
		root := scenarioTree(t)
		store := testutil.NewTestStore(t)

		if _, err := newPipeline(t, store, root, nil).Run(root); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if err := store.ForEachEntry(func(e *snap.Entry) error {
			if e.Path == "." || e.Path == root {
				t.Errorf("root persisted as %s", e.Path)
			}
			return nil
		}); err != nil {
			t.Fatalf("ForEachEntry() error = %v", err)
		}
	})

	t.Run("unknown owners get placeholder identity rows", func(t *testing.T) {
		root := t.TempDir()
		testutil.WriteFile(t, root, "a.txt", "hi")
		store := testutil.NewTestStore(t)

		matcher, _ := fs.NewExcludeMatcher(nil)
		p := snap.NewPipeline(
			store,
			fs.NewTreeWalker(matcher),
			fs.NewOSCapturer(root, fs.NewSHA256Hasher()),
			testutil.EmptyIdentities(),
			snap.NopReporter{},
			snap.NewNopLogger(),
			&testutil.FixedClock{Time: time.UnixMilli(1700000000000), Step: time.Second},
			&testutil.SequenceIDs{},
			"",
			nil,
		)
		if _, err := p.Run(root); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		users, err := store.Users()
		if err != nil {
			t.Fatalf("Users() error = %v", err)
		}
		if len(users) != 1 {
			t.Fatalf("got %d user rows, want 1", len(users))
		}
		if users[0].Username == "" {
			t.Error("placeholder user has no name")
		}
	})

	t.Run("unreadable directory still completes with manifest", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("permission checks do not apply to root")
		}
		root := t.TempDir()
		testutil.WriteFile(t, root, "before.txt", "a")
		testutil.WriteFile(t, root, "locked/secret.txt", "b")
		testutil.WriteFile(t, root, "zafter.txt", "c")

		locked := filepath.Join(root, "locked")
		if err := os.Chmod(locked, 0o000); err != nil {
			t.Fatalf("chmod: %v", err)
		}
		t.Cleanup(func() { os.Chmod(locked, 0o755) })

		store := testutil.NewTestStore(t)
		manifest, err := newPipeline(t, store, root, nil).Run(root)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if manifest.Stats.Errors < 1 {
			t.Errorf("Errors = %d, want >= 1", manifest.Stats.Errors)
		}
		persisted, err := store.ReadManifest()
		if err != nil {
			t.Fatalf("ReadManifest() error = %v", err)
		}
		if persisted == nil {
			t.Fatal("manifest row missing after a recoverable failure")
		}

		rels := make(map[string]bool)
		store.ForEachEntry(func(e *snap.Entry) error {
			rels[e.Path] = true
			return nil
		})
		if !rels["before.txt"] || !rels["zafter.txt"] {
			t.Errorf("siblings missing: %v", rels)
		}
		if !rels["locked"] {
			t.Error("the unreadable directory itself should be persisted")
		}
	})

	t.Run("flush failure aborts the run without a manifest", func(t *testing.T) {
		root := t.TempDir()
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			testutil.WriteFile(t, root, name+".txt", name)
		}

		inner := testutil.NewTestStore(t)
		failing := &testutil.FailingStore{Store: inner, FailAfter: 1}

		p := newPipeline(t, failing, root, nil)
		p.SetBatchSize(2)

		if _, err := p.Run(root); err == nil {
			t.Fatal("Run() should fail when a batch flush fails")
		}

		manifest, err := inner.ReadManifest()
		if err != nil {
			t.Fatalf("ReadManifest() error = %v", err)
		}
		if manifest != nil {
			t.Error("manifest row written despite an aborted run")
		}

		count, err := inner.CountEntries()
		if err != nil {
			t.Fatalf("CountEntries() error = %v", err)
		}
		if count != 2 {
			t.Errorf("persisted entries = %d, want the first committed batch of 2", count)
		}
	})

	t.Run("manifest fields are filled in", func(t *testing.T) {
		root := scenarioTree(t)
		store := testutil.NewTestStore(t)

		manifest, err := newPipeline(t, store, root, []string{"**/node_modules/**"}).Run(root)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if manifest.Version != snap.FormatVersion {
			t.Errorf("Version = %d, want %d", manifest.Version, snap.FormatVersion)
		}
		if manifest.SnapshotID == "" {
			t.Error("SnapshotID empty")
		}
		if manifest.RootPath != root {
			t.Errorf("RootPath = %s, want %s", manifest.RootPath, root)
		}
		if manifest.ScanEnd < manifest.ScanStart || manifest.ScanDuration <= 0 {
			t.Errorf("scan times inconsistent: start=%d end=%d duration=%d",
				manifest.ScanStart, manifest.ScanEnd, manifest.ScanDuration)
		}
		if manifest.ExcludeJSON != `["**/node_modules/**"]` {
			t.Errorf("ExcludeJSON = %s", manifest.ExcludeJSON)
		}
		if manifest.OSPlatform == "" || manifest.TimeZone == "" {
			t.Errorf("platform fields empty: %q %q", manifest.OSPlatform, manifest.TimeZone)
		}
	})
}
