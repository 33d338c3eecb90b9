package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/bicis/pkg/backup"
	"github.com/ssargent/bicis/pkg/report"
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup <archive>",
	Short: "Write a compressed copy of the data file",
	Long: `Write a zstd-compressed copy of the data file.

Example:
  bicis backup ./bicis.dat.zst`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}

		n, err := backup.WriteFile(args[0], rt.store)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		cmd.Printf("Backed up %d bytes to %s\n", n, args[0])
		return nil
	},
}

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Recreate the data file from a backup",
	Long: `Recreate the data file from a backup written by 'bicis backup'.
An existing data file is only replaced when --force is given, and only after
the backup has been fully decompressed and opens as a valid data file. A bad
archive leaves the current data file untouched.

Example:
  bicis restore ./bicis.dat.zst --force`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}
		// the restored copy must open as a data file of the configured layout
		validate := func(path string) error {
			s, err := container.OpenStore(path, cfg.Layout())
			if err != nil {
				return err
			}
			return s.Close()
		}

		n, err := backup.RestoreFile(cfg.DataFile, args[0], force, validate)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		cmd.Printf("Restored %d bytes to %s\n", n, cfg.DataFile)
		return nil
	},
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export stations and bikes as a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}

		f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		if err := report.Write(f, rt.service); err != nil {
			f.Close()
			return fmt.Errorf("export failed: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		cmd.Printf("Exported to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(exportCmd)
	restoreCmd.Flags().Bool("force", false, "Replace an existing data file")
}
