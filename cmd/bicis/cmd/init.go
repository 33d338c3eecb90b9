/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/bicis/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file and seed a new data file",
	Long: `Create the bicis config file and seed a new data file.

This command will:
- Write a config file with a generated API key (unless one exists)
- Create the data file with every station half full

An existing data file is left alone unless --force is given, in which case
it is reseeded and the rental history is cleared.

Examples:
  bicis init
  bicis init --data-file=./rentals.dat --config=./bicis.yaml`,
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path := configPath(cmd)

		var cfg *config.Config
		if config.ConfigExists(path) && !force {
			loaded, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg = loaded
			cmd.Printf("Using existing config %s\n", path)
		} else {
			dataFile, _ := cmd.Flags().GetString("data-file")
			created, err := config.BootstrapConfig(path, dataFile)
			if err != nil {
				return err
			}
			cfg = created
			cmd.Printf("Wrote config %s\n", path)
			cmd.Printf("API key: %s\n", cfg.Server.APIKey)
		}

		if force {
			if err := os.Remove(cfg.DataFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove data file: %w", err)
			}
			if cfg.JournalDir != "" {
				if err := os.RemoveAll(cfg.JournalDir); err != nil {
					return fmt.Errorf("failed to remove journal: %w", err)
				}
			}
		}

		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}
		s, err := container.OpenStore(cfg.DataFile, cfg.Layout())
		if err != nil {
			return fmt.Errorf("failed to open data file: %w", err)
		}
		seeded := s.Seeded()
		records := s.Records()
		if err := s.Close(); err != nil {
			return err
		}

		if seeded {
			cmd.Printf("Seeded %s: %d stations, capacity %d, %d bikes\n",
				cfg.DataFile, cfg.Stations, cfg.Capacity, records)
		} else {
			cmd.Printf("Data file %s already exists. Use --force to reseed.\n", cfg.DataFile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite the config file and reseed the data file")
}
