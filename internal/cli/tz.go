package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"compliance-calendar/internal/tzutil"
)

func newTZCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tz",
		Short: "Time zone conversions",
	}

	var date, clock string
	convert := &cobra.Command{
		Use:   "convert",
		Short: "Convert a local date and time in --tz to a UTC instant",
		Example: `  calctl tz convert --date 2025-03-30 --time 09:00 --tz Europe/Berlin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = g.today()
			}
			t, err := tzutil.ZonedDateTimeToUTC(date, clock, g.profile.TimeZone)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tzutil.FormatISO(t))
			return nil
		},
	}
	convert.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	convert.Flags().StringVar(&clock, "time", "", "time HH:MM (default midnight)")

	show := &cobra.Command{
		Use:   "show <instant>",
		Short: "Show an instant as date and time in --tz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			tz := g.profile.TimeZone
			printLabel(out, "Zone", tz)
			printLabel(out, "Date", tzutil.ToDateOnly(args[0], tz))
			printLabel(out, "Time", tzutil.ToTimeOnly(args[0], tz))
			printLabel(out, "Display", tzutil.FormatInTimeZone(args[0], tz, ""))
			return nil
		},
	}

	host := &cobra.Command{
		Use:   "host",
		Short: "Print the detected host time zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), tzutil.HostTimeZone())
			return nil
		},
	}

	cmd.AddCommand(convert, show, host)
	return cmd
}
