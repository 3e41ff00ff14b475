package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"dirsnap/internal/archive"
	"dirsnap/internal/config"
	"dirsnap/internal/database"
	"dirsnap/internal/encryption"
	"dirsnap/internal/fs"
	"dirsnap/internal/identity"
	"dirsnap/internal/snap"
)

// App is the application layer between the CLI and the snapshot pipeline.
// It resolves options, constructs all collaborators, and manages the store
// and log file lifecycle. The caller must call Close when done.
type App struct {
	cfg     *config.Config
	opts    Options
	store   *database.Store
	logger  snap.Logger
	logFile *os.File
}

// NewApp creates an App from the given config and resolved options.
func NewApp(cfg *config.Config, opts Options) (*App, error) {
	logDir := cfg.LogDir
	if logDir == "" {
		defaults, err := GetDefaults()
		if err != nil {
			return nil, err
		}
		logDir = defaults["log_dir"]
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(logDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &App{
		cfg:     cfg,
		opts:    opts,
		logger:  &slogAdapter{l: slogger},
		logFile: logFile,
	}, nil
}

// Scan produces one complete snapshot of the target directory: runs the
// pipeline against a fresh database, writes the optional signature and
// checksum artifacts, and archives the result when an archive is
// configured.
func (a *App) Scan(ctx context.Context) (*snap.Manifest, error) {
	if _, err := os.Stat(a.opts.Output); err == nil {
		if !a.opts.Force {
			return nil, fmt.Errorf("output database already exists: %s (use --force to replace)", a.opts.Output)
		}
		if err := os.Remove(a.opts.Output); err != nil {
			return nil, fmt.Errorf("removing previous output: %w", err)
		}
	}

	info, err := os.Stat(a.opts.TargetDir)
	if err != nil {
		return nil, fmt.Errorf("stat target directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("target is not a directory: %s", a.opts.TargetDir)
	}

	store, err := database.Open(a.opts.Output)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}
	a.store = store

	matcher, err := fs.NewExcludeMatcher(a.opts.Exclude)
	if err != nil {
		return nil, err
	}

	identities, err := identity.Load()
	if err != nil {
		return nil, fmt.Errorf("loading identity directory: %w", err)
	}

	hasher := fs.NewSHA256Hasher()
	pipeline := snap.NewPipeline(
		store,
		fs.NewTreeWalker(matcher),
		fs.NewOSCapturer(a.opts.TargetDir, hasher),
		identities,
		newReporter(a.opts.Quiet),
		a.logger,
		snap.RealClock{},
		snap.UUIDGenerator{},
		a.opts.SnapshotName,
		a.opts.Exclude,
	)

	manifest, err := pipeline.Run(a.opts.TargetDir)
	if err != nil {
		store.Close()
		a.store = nil
		return nil, err
	}

	// The database must be closed before artifacts are derived from it.
	if err := store.Close(); err != nil {
		a.store = nil
		return nil, fmt.Errorf("closing snapshot database: %w", err)
	}
	a.store = nil

	if a.opts.SignatureFile {
		if err := snap.WriteSignatureFile(a.opts.Output+".sig.txt", manifest); err != nil {
			return nil, err
		}
	}
	if a.opts.ChecksumFile {
		if err := snap.WriteChecksumFile(a.opts.Output+".sha256", a.opts.Output, hasher); err != nil {
			return nil, err
		}
	}

	// Archive failures do not invalidate the completed local snapshot; they
	// are logged and reported, nothing more.
	if err := a.archiveSnapshot(ctx, manifest); err != nil {
		a.logger.Error("archiving snapshot failed", "error", err)
		fmt.Fprintf(os.Stderr, "warning: archiving snapshot failed: %v\n", err)
	}

	return manifest, nil
}

// archiveSnapshot uploads the snapshot database (encrypted when configured)
// and signature artifact to the configured archive, if any.
func (a *App) archiveSnapshot(ctx context.Context, manifest *snap.Manifest) error {
	arc, err := archive.NewArchiveFromConfig(ctx, a.cfg.Archive)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	if arc == nil {
		return nil
	}

	dbPath := a.opts.Output
	dbName := fmt.Sprintf("dirsnap-%s.db", manifest.SnapshotID)

	if a.cfg.Encryption.Enabled {
		enc := encryption.NewAgeEncryptor(a.cfg.Encryption.RecipientPath, a.cfg.Encryption.IdentityPath)
		encPath, err := encryptToTemp(enc, dbPath)
		if err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
		defer os.Remove(encPath)
		dbPath = encPath
		dbName += ".age"
	}

	if err := putFile(ctx, arc, dbName, dbPath); err != nil {
		return fmt.Errorf("uploading snapshot database: %w", err)
	}
	a.logger.Info("snapshot archived", "name", dbName)

	if a.opts.SignatureFile {
		sigName := fmt.Sprintf("dirsnap-%s.sig.txt", manifest.SnapshotID)
		if err := putFile(ctx, arc, sigName, a.opts.Output+".sig.txt"); err != nil {
			return fmt.Errorf("uploading signature artifact: %w", err)
		}
	}

	return nil
}

// encryptToTemp encrypts src into a temp file and returns its path.
// The caller removes the file.
func encryptToTemp(enc encryption.Encryptor, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "dirsnap-enc-*.age")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := out.Name()

	if err := enc.Encrypt(in, out); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return tmpPath, nil
}

// putFile streams one local file into the archive under name.
func putFile(ctx context.Context, arc archive.Archive, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	return arc.Put(ctx, name, f, info.Size())
}

// Verify opens an existing snapshot database, recomputes the signature over
// its rows and compares it to the manifest.
func (a *App) Verify() (*snap.Manifest, error) {
	store, err := a.openExisting()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return snap.Verify(store)
}

// Info returns the manifest of an existing snapshot database, along with
// the persisted entry count. A nil manifest means the snapshot is
// incomplete.
func (a *App) Info() (*snap.Manifest, int64, error) {
	store, err := a.openExisting()
	if err != nil {
		return nil, 0, err
	}
	defer store.Close()

	manifest, err := store.ReadManifest()
	if err != nil {
		return nil, 0, err
	}
	count, err := store.CountEntries()
	if err != nil {
		return nil, 0, err
	}
	return manifest, count, nil
}

func (a *App) openExisting() (*database.Store, error) {
	if _, err := os.Stat(a.opts.Output); err != nil {
		return nil, fmt.Errorf("snapshot database not found: %s", a.opts.Output)
	}
	store, err := database.Open(a.opts.Output)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}
	if err := store.CheckMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("snapshot database schema mismatch: %w", err)
	}
	return store, nil
}

// Close releases the log file and any open store.
func (a *App) Close() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
		a.store = nil
	}
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
	return firstErr
}
