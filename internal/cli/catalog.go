package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chative/appointment-assistant/internal/agent/graph/tools"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List bookable slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, closeFn, err := storeDispatcher(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		fmt.Fprintln(cmd.OutOrStdout(), d.ListSlots(cmd.Context()).Message)
		return nil
	},
}

var appointmentsCmd = &cobra.Command{
	Use:     "appointments [id]",
	Short:   "List appointments, or show one",
	Aliases: []string{"apts"},
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, closeFn, err := storeDispatcher(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		res := d.ListAppointments(cmd.Context())
		if len(args) == 1 {
			res = d.Lookup(cmd.Context(), args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

func storeDispatcher(cmd *cobra.Command) (*tools.Dispatcher, func(), error) {
	app, err := NewStoreApp(cmd.Context(), appConfig)
	if err != nil {
		return nil, nil, err
	}
	d, err := tools.NewDispatcher(cmd.Context(), app.Appointments)
	if err != nil {
		app.Close()
		return nil, nil, err
	}
	return d, app.Close, nil
}

func init() {
	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(appointmentsCmd)
}
