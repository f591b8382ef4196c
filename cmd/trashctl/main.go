// Package main implements trashctl, which answers schedule questions from a
// local schedule document without running the server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/trash-schedule/config"
	"github.com/warp/trash-schedule/factory"
	"github.com/warp/trash-schedule/generic"
	"github.com/warp/trash-schedule/logging"
	"github.com/warp/trash-schedule/trash"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the persistent flags shared by every command.
type options struct {
	schedulePath string
	timezone     string
	date         string
	jsonOutput   bool
	logLevel     string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "trashctl",
		Short: "Query a trash collection schedule",
		Long: `trashctl evaluates a stored schedule document (the same JSON list the
server keeps per user) and answers what goes out when.

Examples:
  # What can go out today?
  trashctl enabled -f schedule.json

  # Next week's reminders at 07:00
  trashctl remind -f schedule.json --week next --time 07:00

  # When is "廃品" collected next, as of a given date?
  trashctl next 廃品 -f schedule.json --date 2019-03-14`,
		Version:      version,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.schedulePath, "schedule", "f", "", "schedule document (JSON), - for stdin")
	flags.StringVar(&opts.timezone, "tz", config.Default().Calendar.DefaultTimezone, "IANA timezone used to resolve today")
	flags.StringVar(&opts.date, "date", "", "pretend today is this date (YYYY-MM-DD)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print JSON")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	root.MarkPersistentFlagRequired("schedule")

	root.AddCommand(
		newValidateCmd(opts),
		newEnabledCmd(opts),
		newLookaheadCmd(opts),
		newNextCmd(opts),
		newRemindCmd(opts),
	)
	return root
}

// =============================================================================
// SHARED
// =============================================================================

// session is the loaded state every command works from.
type session struct {
	categories []trash.Category
	warnings   []*generic.InvalidRuleError
	calendar   generic.Calendar
	local      *generic.LocalCalendar // nil when --date pins today
	logger     *zap.Logger
}

func (o *options) load(cmd *cobra.Command) (*session, error) {
	logger, err := logging.New(config.LogConfig{Level: o.logLevel, Format: "console"})
	if err != nil {
		return nil, err
	}

	doc, err := readDocument(cmd.InOrStdin(), o.schedulePath)
	if err != nil {
		return nil, err
	}
	categories, warnings, err := factory.ParseSchedule(doc)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn("rule treated as none", zap.Error(w))
	}

	s := &session{categories: categories, warnings: warnings, logger: logger}
	if o.date != "" {
		today, err := generic.ParseDate(o.date)
		if err != nil {
			return nil, err
		}
		s.calendar = generic.FixedCalendar{Today: today}
		return s, nil
	}

	local, err := generic.NewLocalCalendar(o.timezone)
	if err != nil {
		return nil, err
	}
	s.calendar = local
	s.local = local
	return s, nil
}

func readDocument(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read schedule: %w", err)
	}
	return string(data), nil
}

func (o *options) print(cmd *cobra.Command, v any, text func(io.Writer)) error {
	if o.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(cmd.OutOrStdout())
	return nil
}

func printDay(w io.Writer, d trash.DaySchedule) {
	names := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		names = append(names, e.DisplayName)
	}
	if len(names) == 0 {
		fmt.Fprintf(w, "%s (%s)  -\n", d.Date, d.Date.Weekday())
		return
	}
	fmt.Fprintf(w, "%s (%s)  %s\n", d.Date, d.Date.Weekday(), strings.Join(names, ", "))
}
