package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	logx "github.com/chative/appointment-assistant/pkg/logger"
)

var (
	envFile   string
	verbose   bool
	appConfig *AppConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Appointment assistant for a medical office",
	Long: `An appointment assistant that classifies patient requests, runs
scheduling operations against the appointment store and holds every
drafted reply for human review before it is sent.

Safety requests (emergencies, medical advice) are escalated before any
model or store is touched.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(envFile)
		if err != nil {
			return err
		}
		appConfig = cfg
		logx.Init(logx.LoggerOpts{Environment: cfg.Env(), Output: cmd.ErrOrStderr()})
		logx.Debug().Str("command", cmd.CommandPath()).Str("environment", cfg.Env().String()).Msg("command start")
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "keep debug logging on in the interactive shell")
}
