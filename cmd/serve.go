package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wognsths/MarketSage/pkg/auth"
	"github.com/wognsths/MarketSage/pkg/hostagent"
	"github.com/wognsths/MarketSage/pkg/notify"
	"github.com/wognsths/MarketSage/pkg/service"
	"github.com/wognsths/MarketSage/pkg/stores"
	"github.com/wognsths/MarketSage/pkg/stores/s3"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the MarketSage host agent",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()

			senderAuth, err := notify.NewSenderAuth(
				v.GetString("notifications.issuer"),
				v.GetDuration("notifications.tokenTTL"),
			)

			if err != nil {
				return err
			}

			dispatcher := notify.NewDispatcher(senderAuth)
			artifacts, err := artifactStore(cmd, v)

			if err != nil {
				return err
			}

			host := hostagent.NewHostAgent(
				hostagent.NewInMemorySessionStore(v.GetDuration("sessions.ttl")),
				artifacts,
				dispatcher,
			)

			for _, address := range v.GetStringSlice("agents.addresses") {
				if err := host.RegisterAgent(cmd.Context(), address); err != nil {
					return err
				}
			}

			var limiter *auth.RateLimiter
			if rate := v.GetInt64("server.rateLimit"); rate > 0 {
				limiter = auth.NewRateLimiter(rate, time.Minute)
			}

			addr := listenAddr(cmd, v)
			log.Info("starting host server", "addr", addr)

			return service.NewHostServer(host, dispatcher, senderAuth, limiter).Start(addr)
		},
	}
)

/*
listenAddr resolves the bind address from server.host/server.port in the
config, with the --host/--port flags taking precedence when set.
*/
func listenAddr(cmd *cobra.Command, v *viper.Viper) string {
	host, _ := cmd.Flags().GetString("host")
	if !cmd.Flags().Changed("host") {
		if configured := v.GetString("server.host"); configured != "" {
			host = configured
		}
	}

	port, _ := cmd.Flags().GetInt("port")
	if !cmd.Flags().Changed("port") {
		if configured := v.GetInt("server.port"); configured != 0 {
			port = configured
		}
	}

	return fmt.Sprintf("%s:%d", host, port)
}

func artifactStore(cmd *cobra.Command, v *viper.Viper) (stores.ArtifactStore, error) {
	if v.GetString("artifacts.backend") != "s3" {
		return stores.NewInMemoryArtifactStore(), nil
	}

	conn, err := s3.NewConn(
		v.GetString("artifacts.s3.endpoint"),
		v.GetString("artifacts.s3.accessKey"),
		v.GetString("artifacts.s3.secretKey"),
		v.GetString("artifacts.s3.bucket"),
		v.GetBool("artifacts.s3.useSSL"),
	)

	if err != nil {
		return nil, err
	}

	if err := conn.EnsureBucket(cmd.Context()); err != nil {
		return nil, err
	}

	return s3.NewStore(conn), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8000, "Port to serve on")
	serveCmd.Flags().StringP("host", "H", "0.0.0.0", "Host address to bind to")
}

var longServe = `
Run the host agent HTTP service.

On startup every remote agent listed under agents.addresses is resolved via
its /.well-known/agent.json card and registered in the directory. Tasks are
then accepted on POST /host/tasks/:agent.

Examples:
  # Serve on the default port
  marketsage serve

  # Serve on port 9000
  marketsage serve --port 9000
`
