package cmd

import (
	"log"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/datadash-cli/internal/dashboard"
	"github.com/KaramelBytes/datadash-cli/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		log.SetFlags(log.LstdFlags)
		addr := c.ServerAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.New(dashboard.NewStore(), newInsightGenerator(c), newChatResponder(c), server.Options{
			MaxFileBytes: c.MaxFileBytes,
			PageSize:     c.PageSize,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config server_addr)")
}
