// Package cli implements calctl, the terminal client of the compliance
// calendar service.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"compliance-calendar/internal/client"
	"compliance-calendar/internal/config"
	"compliance-calendar/internal/logging"
	"compliance-calendar/internal/tzutil"
)

// globals is the state shared by every subcommand. The zone is resolved
// once in the root pre-run and threaded down from there.
type globals struct {
	configPath string
	baseURL    string
	token      string
	tz         string
	timeout    time.Duration
	verbose    bool

	profile config.Profile
	logger  *slog.Logger
	now     func() time.Time
	api     *client.Client
}

func (g *globals) load(cmd *cobra.Command) error {
	path := g.configPath
	if path == "" {
		path = config.DefaultProfilePath()
	}
	p, err := config.LoadProfile(path)
	if err != nil {
		return err
	}
	if g.baseURL != "" {
		p.BaseURL = g.baseURL
	}
	if g.token != "" {
		p.Token = g.token
	}
	if g.timeout > 0 {
		p.Timeout = g.timeout
	}
	p.TimeZone = tzutil.Resolve(g.tz, p.TimeZone)
	if _, err := tzutil.LoadLocation(p.TimeZone); err != nil {
		return err
	}
	g.profile = p

	if g.verbose {
		g.logger = logging.New(cmd.ErrOrStderr(), "debug")
	} else {
		g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g.api = client.New(client.Options{
		BaseURL: p.BaseURL,
		Token:   p.Token,
		Timeout: p.Timeout,
		Logger:  g.logger,
	})
	return nil
}

func (g *globals) today() string {
	return tzutil.TodayInTimeZone(g.now(), g.profile.TimeZone)
}

// NewRootCmd builds the calctl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(time.Now)
}

func newRootCmd(now func() time.Time) *cobra.Command {
	g := &globals{now: now}
	root := &cobra.Command{
		Use:           "calctl",
		Short:         "Manage compliance calendar events from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "profile file (default "+config.DefaultProfilePath()+")")
	pf.StringVar(&g.baseURL, "base-url", "", "calendar service URL")
	pf.StringVar(&g.token, "token", "", "bearer token")
	pf.StringVar(&g.tz, "tz", "", "IANA time zone for input and display (default: profile, then host zone)")
	pf.DurationVar(&g.timeout, "timeout", 0, "request timeout")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newEventCmd(g),
		newStatsCmd(g),
		newSlotsCmd(g),
		newAICmd(g),
		newTZCmd(g),
		newConfigCmd(g),
	)
	return root
}

// Execute runs calctl with the process arguments.
func Execute() {
	config.LoadEnvFiles()
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("error: ")+strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
