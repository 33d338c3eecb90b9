/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/bicis/pkg/config"
	"github.com/ssargent/bicis/pkg/di"
	"github.com/ssargent/bicis/pkg/journal"
	"github.com/ssargent/bicis/pkg/rental"
	"github.com/ssargent/bicis/pkg/store"
)

// skipStore marks commands that must run without the data file open
const skipStore = "skip-store"

type runtimeKey struct{}

// runtime is what PersistentPreRunE opens for a command
type runtime struct {
	config  *config.Config
	store   *store.Store
	journal *journal.Journal
	service *rental.Service
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.journal != nil {
		errs = append(errs, rt.journal.Close())
	}
	errs = append(errs, rt.store.Close())
	return errors.Join(errs...)
}

var (
	container *di.Container
	active    *runtime
)

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bicis",
	Short: "bicis - bike rental over a single data file",
	Long: `bicis rents and returns bikes across a fixed set of stations.
All state lives in one binary data file holding a counter per station
and a record per bike.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipStore] == "true" {
			return nil
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rt, err := openRuntime(cfg)
		if err != nil {
			return err
		}
		active = rt
		if rt.store.Seeded() {
			cmd.Printf("Created data file %s\n", cfg.DataFile)
		}
		// Store in command context
		cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

// execute runs the root command and closes whatever it opened, even when
// the command itself failed
func execute() error {
	err := rootCmd.Execute()
	if active != nil {
		if cerr := active.Close(); cerr != nil && err == nil {
			rootCmd.PrintErrf("Error: %v\n", cerr)
			err = cerr
		}
		active = nil
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $HOME/.config/bicis/config.yaml)")
	rootCmd.PersistentFlags().StringP("data-file", "f", "", "Data file, overrides the config file")
	rootCmd.PersistentFlags().String("format", "table", "Output format: table or json")
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// loadConfig reads the config file when there is one and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath(cmd)

	cfg := config.DefaultConfig()
	exists := config.ConfigExists(path)
	if exists {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("data-file") {
		cfg.DataFile, _ = cmd.Flags().GetString("data-file")
		// without a config file the journal lives next to the data file
		if !exists {
			cfg.JournalDir = cfg.DataFile + ".journal"
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openRuntime(cfg *config.Config) (*runtime, error) {
	if container == nil {
		return nil, fmt.Errorf("dependency container not initialized")
	}

	s, err := container.OpenStore(cfg.DataFile, cfg.Layout())
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}

	rt := &runtime{config: cfg, store: s}
	serviceConfig := rental.ServiceConfig{Fsync: cfg.Fsync}
	if cfg.JournalDir != "" {
		rt.journal, err = container.OpenJournal(cfg.JournalDir)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		serviceConfig.Recorder = rt.journal
	}
	rt.service = rental.NewService(s, serviceConfig)
	return rt, nil
}

func runtimeFrom(cmd *cobra.Command) (*runtime, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime)
	if !ok {
		return nil, fmt.Errorf("data file not opened")
	}
	return rt, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("format")
	return format == "json"
}
