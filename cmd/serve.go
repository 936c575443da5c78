package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/opcheck/internal/server"
	"github.com/sw33tLie/opcheck/internal/utils"
	"github.com/sw33tLie/opcheck/pkg/batch"
	"github.com/sw33tLie/opcheck/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the opcheck web interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		proxy, _ := cmd.Flags().GetString("proxy")
		fetcher, err := cfg.NewFetcher(proxy)
		if err != nil {
			return err
		}

		srv, err := server.New(fetcher, config.NewPreferences(viper.GetViper()), batch.Options{
			ChunkSize: cfg.ChunkSize,
			Log:       utils.Log,
		})
		if err != nil {
			return err
		}
		srv.Username, _ = cmd.Flags().GetString("user")
		srv.Password, _ = cmd.Flags().GetString("pass")

		listenAddr, _ := cmd.Flags().GetString("listen")
		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "127.0.0.1:8080", "HTTP listen address")
	serveCmd.Flags().String("user", "", "Basic auth username (disabled when empty)")
	serveCmd.Flags().String("pass", "", "Basic auth password")
	serveCmd.Flags().String("backend", "", "Operator backend: remote or offline")
	serveCmd.Flags().Int("chunk-size", 0, "Numbers per lookup request (max 2000)")
	serveCmd.Flags().Duration("timeout", 0, "Timeout per lookup request")
}
