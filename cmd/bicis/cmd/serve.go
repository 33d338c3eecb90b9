/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/bicis/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the bicis REST API server. Requests must carry the API key from
the config file (or --api-key) in the X-API-Key header.

Examples:
  bicis serve
  bicis serve --port=9000 --bind=0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}

		serverConfig := api.ServerConfig{
			Port:    rt.config.Server.Port,
			Bind:    rt.config.Server.Bind,
			APIKey:  rt.config.Server.APIKey,
			Verbose: rt.config.Verbose(),
		}
		if cmd.Flags().Changed("port") {
			serverConfig.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			serverConfig.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			serverConfig.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if serverConfig.APIKey == "" {
			return fmt.Errorf("no API key configured: run 'bicis init' or pass --api-key")
		}

		var history api.History
		if rt.journal != nil {
			history = rt.journal
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := container.Serve(ctx, rt.service, history, serverConfig); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key, overrides the config file")
}
