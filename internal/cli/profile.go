package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"compliance-calendar/internal/config"
)

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the calctl profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			printLabel(out, "Base URL", g.profile.BaseURL)
			token := "(none)"
			if g.profile.Token != "" {
				token = "(set)"
			}
			printLabel(out, "Token", token)
			printLabel(out, "Time zone", g.profile.TimeZone)
			printLabel(out, "Timeout", g.profile.Timeout)
			return nil
		},
	}

	save := &cobra.Command{
		Use:   "save",
		Short: "Write the effective settings, including flags, to the profile file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				path = config.DefaultProfilePath()
			}
			if err := config.SaveProfile(path, g.profile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("saved"), path)
			return nil
		},
	}

	cmd.AddCommand(show, save)
	return cmd
}
