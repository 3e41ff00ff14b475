package main

import (
	"fmt"
	"os"

	"dirsnap/internal/app"
	"dirsnap/internal/config"
	"dirsnap/internal/encryption"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to built-in defaults when
// no file exists yet. dirsnap is usable without ever running `config init`.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	if _, err := os.Stat(defaults["config_path"]); os.IsNotExist(err) {
		return config.NewConfig(defaults["base_dir"]), nil
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// boolFlag returns a pointer to the flag value when it was explicitly set,
// nil otherwise, so unset flags don't override the config file.
func boolFlag(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

var rootCmd = &cobra.Command{
	Use:   "dirsnap",
	Short: "Forensic, tamper-evident snapshots of a directory tree",
	Long: `dirsnap walks a directory tree, records metadata and content hashes
for every entry into a snapshot database, and seals the result with a
single deterministic signature. Compare signatures across time or hosts
to detect any change.`,
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [PATH]",
	Short: "Snapshot a directory tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		overrides := app.Overrides{
			Output:        flagOutput,
			SnapshotName:  flagName,
			Exclude:       flagExclude,
			Quiet:         boolFlag(cmd, "quiet"),
			Force:         flagForce,
			SignatureFile: boolFlag(cmd, "signature-file"),
			ChecksumFile:  boolFlag(cmd, "checksum-file"),
		}
		if len(args) > 0 {
			overrides.TargetDir = args[0]
		}

		opts, err := app.ResolveOptions(cfg, overrides)
		if err != nil {
			return err
		}

		a, err := app.NewApp(cfg, opts)
		if err != nil {
			return err
		}
		defer a.Close()

		manifest, err := a.Scan(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if !opts.Quiet {
			app.PrintSummary(os.Stdout, manifest)
		}
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute and check a snapshot's signature",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts, err := app.ResolveOptions(cfg, app.Overrides{TargetDir: ".", Output: flagOutput})
		if err != nil {
			return err
		}

		a, err := app.NewApp(cfg, opts)
		if err != nil {
			return err
		}
		defer a.Close()

		manifest, err := a.Verify()
		if err != nil {
			return err
		}

		fmt.Printf("OK: signature %s\n", manifest.Signature)
		return nil
	},
}

// info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show a snapshot's manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts, err := app.ResolveOptions(cfg, app.Overrides{TargetDir: ".", Output: flagOutput})
		if err != nil {
			return err
		}

		a, err := app.NewApp(cfg, opts)
		if err != nil {
			return err
		}
		defer a.Close()

		manifest, count, err := a.Info()
		if err != nil {
			return err
		}
		if manifest == nil {
			fmt.Printf("Snapshot is INCOMPLETE: %d entries persisted, no manifest row\n", count)
			return nil
		}

		app.PrintSummary(os.Stdout, manifest)
		fmt.Printf("  platform:  %s (%s)\n", manifest.OSPlatform, manifest.TimeZone)
		fmt.Printf("  excludes:  %s\n", manifest.ExcludeJSON)
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Target Dir: %s\n", cfg.TargetDir)
		fmt.Printf("Output:     %s\n", cfg.Output)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Excludes:   %v\n", cfg.Exclude)
		fmt.Printf("Archive:    %s\n", cfg.Archive.Type)
		return nil
	},
}

// keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the age key pair used to encrypt archived snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Print("Passphrase for the private key: ")
		passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		if len(passphrase) == 0 {
			return fmt.Errorf("empty passphrase")
		}

		enc := encryption.NewAgeEncryptor(cfg.Encryption.RecipientPath, cfg.Encryption.IdentityPath)
		if err := enc.Setup(string(passphrase)); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Printf("Recipient written to %s\n", cfg.Encryption.RecipientPath)
		fmt.Printf("Encrypted identity written to %s\n", cfg.Encryption.IdentityPath)
		return nil
	},
}

var (
	flagOutput  string
	flagName    string
	flagExclude []string
	flagForce   bool
)

func init() {
	scanCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "snapshot database path")
	scanCmd.Flags().StringVar(&flagName, "name", "", "snapshot name recorded in the manifest")
	scanCmd.Flags().StringArrayVarP(&flagExclude, "exclude", "e", nil, "glob pattern to exclude (repeatable)")
	scanCmd.Flags().BoolP("quiet", "q", false, "suppress progress and summary output")
	scanCmd.Flags().BoolVar(&flagForce, "force", false, "replace an existing snapshot database")
	scanCmd.Flags().Bool("signature-file", false, "write the signature artifact next to the database")
	scanCmd.Flags().Bool("checksum-file", false, "write a sha256sum-compatible checksum of the database")

	verifyCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "snapshot database path")
	infoCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "snapshot database path")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keygenCmd)
}
