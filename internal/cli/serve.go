package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chative/appointment-assistant/internal/agent/model"
	"github.com/chative/appointment-assistant/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the HTTP API. Drafted replies are parked in the review store and
come back as PENDING_REVIEW until a reviewer posts a decision to
/v1/reviews/{runID}.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := NewApp(ctx, appConfig, nil)
		if err != nil {
			return err
		}
		defer app.Close()

		h, err := api.NewHandler(api.Config{
			Service:        app.Assistant,
			Appointments:   app.Appointments,
			MetricsHandler: app.MetricsHandler(),
			RequestTimeout: model.ParseDurationOr(appConfig.HTTP.RequestTimeout, 60*time.Second),
		})
		if err != nil {
			return err
		}
		return api.Serve(ctx, appConfig.HTTP.Addr, h.Routes())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
