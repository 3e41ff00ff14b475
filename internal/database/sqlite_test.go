package database_test

import (
	"path/filepath"
	"testing"

	"dirsnap/internal/database"
	"dirsnap/internal/snap"
	"dirsnap/internal/testutil"
)

func testAttr() snap.Attr {
	return snap.Attr{
		Mtime: 1700000000000,
		Ctime: 1700000001000,
		Mode:  0o644,
		UID:   1000,
		GID:   1000,
		Ino:   7,
		Nlink: 1,
	}
}

func TestOpen(t *testing.T) {
	t.Run("creates the database file with the schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "snap.db")
		store, err := database.Open(path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer store.Close()

		if store.Path() != path {
			t.Errorf("Path() = %s, want %s", store.Path(), path)
		}
		if err := store.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
		n, err := store.CountEntries()
		if err != nil {
			t.Fatalf("CountEntries() error = %v", err)
		}
		if n != 0 {
			t.Errorf("fresh database has %d entries", n)
		}
	})
}

func TestStore_InsertEntries(t *testing.T) {
	t.Run("round-trips every field", func(t *testing.T) {
		store := testutil.NewTestStore(t)

		attr := testAttr()
		in := []*snap.Entry{
			snap.NewFileEntry("a.txt", 2, "8f434346648f6b96df89dda901c5176b10a6d83961dd3c1ac88b59b2dc327aa4", attr),
			snap.NewDirEntry("sub", attr),
			snap.NewLinkEntry("sub/l", "../a.txt", attr),
		}
		if err := store.InsertEntries(in); err != nil {
			t.Fatalf("InsertEntries() error = %v", err)
		}

		var out []*snap.Entry
		if err := store.ForEachEntry(func(e *snap.Entry) error {
			copied := *e
			out = append(out, &copied)
			return nil
		}); err != nil {
			t.Fatalf("ForEachEntry() error = %v", err)
		}
		if len(out) != 3 {
			t.Fatalf("got %d rows, want 3", len(out))
		}

		file := out[0]
		if file.Path != "a.txt" || file.Kind != snap.KindFile {
			t.Errorf("row 0 = %s/%s, want a.txt/file", file.Path, file.Kind)
		}
		if !file.Size.Valid || file.Size.Int64 != 2 {
			t.Errorf("file size = %+v, want 2", file.Size)
		}
		if !file.Hash.Valid {
			t.Error("file hash should be set")
		}
		if file.Mtime != attr.Mtime || file.Ctime != attr.Ctime || file.Mode != attr.Mode ||
			file.UID != attr.UID || file.GID != attr.GID || file.Ino != attr.Ino || file.Nlink != attr.Nlink {
			t.Errorf("file attr mismatch: %+v", file.Attr)
		}

		dir := out[1]
		if dir.Kind != snap.KindDir || dir.Size.Valid || dir.Hash.Valid || dir.Target.Valid {
			t.Errorf("dir row has unexpected fields: %+v", dir)
		}

		link := out[2]
		if link.Kind != snap.KindLink || !link.Target.Valid || link.Target.String != "../a.txt" {
			t.Errorf("link row = %+v, want target ../a.txt", link)
		}
	})

	t.Run("duplicate path rolls the whole batch back", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		attr := testAttr()

		if err := store.InsertEntries([]*snap.Entry{snap.NewDirEntry("sub", attr)}); err != nil {
			t.Fatalf("seeding: %v", err)
		}

		batch := []*snap.Entry{
			snap.NewDirEntry("other", attr),
			snap.NewDirEntry("sub", attr), // collides with the seeded row
		}
		if err := store.InsertEntries(batch); err == nil {
			t.Fatal("InsertEntries() should fail on a duplicate path")
		}

		n, err := store.CountEntries()
		if err != nil {
			t.Fatalf("CountEntries() error = %v", err)
		}
		if n != 1 {
			t.Errorf("entries after failed batch = %d, want only the seeded 1", n)
		}
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		bad := snap.NewDirEntry("x", testAttr())
		bad.Kind = snap.Kind("socket")
		if err := store.InsertEntries([]*snap.Entry{bad}); err == nil {
			t.Error("InsertEntries() should reject a kind outside the schema check")
		}
	})
}

func TestStore_ForEachEntry(t *testing.T) {
	t.Run("orders byte-lexicographically", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		attr := testAttr()

		// Inserted out of order; "Z" sorts before "a" in byte order.
		for _, p := range []string{"b", "Z", "a/x", "a"} {
			if err := store.InsertEntries([]*snap.Entry{snap.NewDirEntry(p, attr)}); err != nil {
				t.Fatalf("inserting %s: %v", p, err)
			}
		}

		var got []string
		store.ForEachEntry(func(e *snap.Entry) error {
			got = append(got, e.Path)
			return nil
		})

		want := []string{"Z", "a", "a/x", "b"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("order = %v, want %v", got, want)
			}
		}
	})

	t.Run("stops on callback error", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		attr := testAttr()
		store.InsertEntries([]*snap.Entry{snap.NewDirEntry("a", attr), snap.NewDirEntry("b", attr)})

		seen := 0
		err := store.ForEachEntry(func(e *snap.Entry) error {
			seen++
			return errStop
		})
		if err != errStop {
			t.Errorf("ForEachEntry() error = %v, want errStop", err)
		}
		if seen != 1 {
			t.Errorf("callback ran %d times, want 1", seen)
		}
	})
}

var errStop = &stopError{}

type stopError struct{}

func (*stopError) Error() string { return "stop" }

func TestStore_Identities(t *testing.T) {
	store := testutil.NewTestStore(t)

	users := []snap.User{
		{UID: 1000, Username: "alice", GID: 1000, Gecos: "Alice", HomeDir: "/home/alice", Shell: "/bin/bash"},
		{UID: 0, Username: "root", GID: 0, HomeDir: "/root", Shell: "/bin/sh"},
	}
	groups := []snap.Group{
		{GID: 1000, Name: "alice", Members: "alice"},
		{GID: 0, Name: "root"},
	}
	if err := store.PutIdentities(users, groups); err != nil {
		t.Fatalf("PutIdentities() error = %v", err)
	}

	gotUsers, err := store.Users()
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	if len(gotUsers) != 2 || gotUsers[0].UID != 0 || gotUsers[1].Username != "alice" {
		t.Errorf("Users() = %+v, want root then alice ordered by uid", gotUsers)
	}
	if gotUsers[1].Shell != "/bin/bash" || gotUsers[1].HomeDir != "/home/alice" {
		t.Errorf("alice row = %+v", gotUsers[1])
	}

	gotGroups, err := store.Groups()
	if err != nil {
		t.Fatalf("Groups() error = %v", err)
	}
	if len(gotGroups) != 2 || gotGroups[0].GID != 0 || gotGroups[1].Members != "alice" {
		t.Errorf("Groups() = %+v, want root then alice ordered by gid", gotGroups)
	}
}

func TestStore_Manifest(t *testing.T) {
	t.Run("absent manifest reads as nil", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		m, err := store.ReadManifest()
		if err != nil {
			t.Fatalf("ReadManifest() error = %v", err)
		}
		if m != nil {
			t.Errorf("ReadManifest() = %+v, want nil", m)
		}
	})

	t.Run("round-trips", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		in := &snap.Manifest{
			Version:      snap.FormatVersion,
			SnapshotID:   "id-1",
			SnapshotName: "nightly",
			RootPath:     "/data",
			ScanStart:    1700000000000,
			ScanEnd:      1700000004000,
			ScanDuration: 4000,
			Stats:        snap.Stats{Entries: 4, Files: 2, Dirs: 2, Size: 5},
			OSPlatform:   "linux",
			TimeZone:     "UTC",
			Signature:    "deadbeef",
			ExcludeJSON:  `["**/node_modules/**"]`,
		}
		if err := store.WriteManifest(in); err != nil {
			t.Fatalf("WriteManifest() error = %v", err)
		}

		out, err := store.ReadManifest()
		if err != nil {
			t.Fatalf("ReadManifest() error = %v", err)
		}
		if out == nil {
			t.Fatal("ReadManifest() = nil after write")
		}
		if *out != *in {
			t.Errorf("manifest round-trip mismatch:\n got %+v\nwant %+v", out, in)
		}
	})
}
