package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stockroom/server"
	"stockroom/store"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured backend over the REST API the client uses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, remote := backend.(*store.HTTPStore); remote {
				return errors.New("serve needs a local backend: use --backend memory or --backend file")
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx, viper.GetString("listen"), server.New(backend).Handler())
		},
	}
	serveCmd.Flags().String("listen", ":3000", "listen address")
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}
