// Package identity loads a point-in-time copy of the OS user and group
// directories. The directory is read once, up front, and is immutable
// afterwards, so pipeline runs resolve ownership deterministically.
package identity

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"dirsnap/internal/snap"
)

// Directory is a read-only uid/gid lookup table. It implements
// snap.IdentitySource.
type Directory struct {
	users  map[int64]snap.User
	groups map[int64]snap.Group
}

// NewDirectory builds a Directory from explicit rows. Use it in tests to
// inject fixture identities.
func NewDirectory(users []snap.User, groups []snap.Group) *Directory {
	d := &Directory{
		users:  make(map[int64]snap.User, len(users)),
		groups: make(map[int64]snap.Group, len(groups)),
	}
	for _, u := range users {
		d.users[u.UID] = u
	}
	for _, g := range groups {
		d.groups[g.GID] = g
	}
	return d
}

// Load reads the host identity directory from /etc/passwd and /etc/group.
// os/user is not used because it cannot report gecos, shell or group
// membership lists, all of which the snapshot records.
func Load() (*Directory, error) {
	return LoadFrom("/etc/passwd", "/etc/group")
}

// LoadFrom reads the identity directory from explicit file paths.
// A missing file yields an empty table rather than an error, so scans still
// run on stripped-down hosts (every owner then gets a placeholder row).
func LoadFrom(passwdPath, groupPath string) (*Directory, error) {
	users, err := parsePasswd(passwdPath)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	groups, err := parseGroup(groupPath)
	if err != nil {
		return nil, fmt.Errorf("loading groups: %w", err)
	}
	return NewDirectory(users, groups), nil
}

// User returns the user row for uid, if known.
func (d *Directory) User(uid int64) (snap.User, bool) {
	u, ok := d.users[uid]
	return u, ok
}

// Group returns the group row for gid, if known.
func (d *Directory) Group(gid int64) (snap.Group, bool) {
	g, ok := d.groups[gid]
	return g, ok
}

// parsePasswd reads passwd(5) lines: name:passwd:uid:gid:gecos:home:shell.
// Malformed lines are skipped; a forensic copy of a directory should not
// fail outright on one bad row.
func parsePasswd(path string) ([]snap.User, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var users []snap.User
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 7 {
			continue
		}
		uid, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			continue
		}
		gid, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			continue
		}
		users = append(users, snap.User{
			UID:      uid,
			Username: fields[0],
			GID:      gid,
			Gecos:    fields[4],
			HomeDir:  fields[5],
			Shell:    fields[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return users, nil
}

// parseGroup reads group(5) lines: name:passwd:gid:member,member.
func parseGroup(path string) ([]snap.Group, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var groups []snap.Group
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 4 {
			continue
		}
		gid, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			continue
		}
		groups = append(groups, snap.Group{
			GID:     gid,
			Name:    fields[0],
			Members: fields[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return groups, nil
}

// Compile-time check that Directory implements snap.IdentitySource.
var _ snap.IdentitySource = (*Directory)(nil)
