package app

import (
	"fmt"
	"path/filepath"

	"dirsnap/internal/config"
)

// Options is the fully resolved option set for one command invocation:
// config file values overlaid with command-line flags.
type Options struct {
	TargetDir     string
	Output        string
	SnapshotName  string
	Exclude       []string
	Quiet         bool
	Force         bool
	SignatureFile bool
	ChecksumFile  bool
}

// Overrides carries the command-line flag values. Boolean pointers are nil
// when the flag was not given, so an explicit --flag=false still wins over
// the config file.
type Overrides struct {
	TargetDir     string
	Output        string
	SnapshotName  string
	Exclude       []string
	Quiet         *bool
	Force         bool
	SignatureFile *bool
	ChecksumFile  *bool
}

// ResolveOptions merges the config file with command-line overrides into the
// final option set. Flags win over file values; exclude lists are combined
// (file patterns apply host-wide, flag patterns add to them).
func ResolveOptions(cfg *config.Config, o Overrides) (Options, error) {
	opts := Options{
		TargetDir:     cfg.TargetDir,
		Output:        cfg.Output,
		SnapshotName:  cfg.SnapshotName,
		Exclude:       append([]string{}, cfg.Exclude...),
		Quiet:         cfg.Quiet,
		Force:         o.Force,
		SignatureFile: cfg.SignatureFile,
		ChecksumFile:  cfg.ChecksumFile,
	}

	if o.TargetDir != "" {
		opts.TargetDir = o.TargetDir
	}
	if o.Output != "" {
		opts.Output = o.Output
	}
	if o.SnapshotName != "" {
		opts.SnapshotName = o.SnapshotName
	}
	opts.Exclude = append(opts.Exclude, o.Exclude...)
	if o.Quiet != nil {
		opts.Quiet = *o.Quiet
	}
	if o.SignatureFile != nil {
		opts.SignatureFile = *o.SignatureFile
	}
	if o.ChecksumFile != nil {
		opts.ChecksumFile = *o.ChecksumFile
	}

	if opts.TargetDir == "" {
		return Options{}, fmt.Errorf("no target directory given (set target_dir or pass a path)")
	}
	if opts.Output == "" {
		return Options{}, fmt.Errorf("no output path given (set output or pass --output)")
	}

	abs, err := filepath.Abs(opts.TargetDir)
	if err != nil {
		return Options{}, fmt.Errorf("resolving target directory: %w", err)
	}
	opts.TargetDir = abs

	return opts, nil
}
