package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/warp/trash-schedule/compare"
	"github.com/warp/trash-schedule/config"
	"github.com/warp/trash-schedule/generic"
	"github.com/warp/trash-schedule/trash"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse the schedule and list rules that will never match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.load(cmd)
			if err != nil {
				return err
			}
			problems := make([]string, 0, len(s.warnings))
			for _, w := range s.warnings {
				problems = append(problems, w.Error())
			}
			return opts.print(cmd, map[string]any{
				"categories": len(s.categories),
				"warnings":   problems,
			}, func(w io.Writer) {
				for _, c := range s.categories {
					fmt.Fprintf(w, "%s\n", c.Key())
					for _, r := range c.Rules {
						fmt.Fprintf(w, "  %s\n", generic.Describe(r))
					}
				}
				for _, p := range problems {
					fmt.Fprintf(w, "warning: %s\n", p)
				}
			})
		},
	}
}

func newEnabledCmd(opts *options) *cobra.Command {
	var offset int
	cmd := &cobra.Command{
		Use:   "enabled",
		Short: "Categories that go out on today + offset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if offset < 0 {
				return fmt.Errorf("--offset must not be negative, got %d", offset)
			}
			s, err := opts.load(cmd)
			if err != nil {
				return err
			}
			date := s.calendar.Date(offset)
			day := trash.DaySchedule{
				DayOffset: offset,
				Date:      date,
				Entries:   trash.EnabledFor(s.categories, date, trash.DefaultNames),
			}
			return opts.print(cmd, day, func(w io.Writer) { printDay(w, day) })
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "days after today")
	return cmd
}

func newLookaheadCmd(opts *options) *cobra.Command {
	var (
		slot    int
		nextDay bool
	)
	cmd := &cobra.Command{
		Use:   "lookahead",
		Short: "Three days of collections from a point-day slot",
		Long: `Three days of collections starting at a point-day slot: 0 today,
1 tomorrow, 2 the day after, 3..9 the next Sunday..Saturday. Without
--slot the start is today, or tomorrow in the afternoon with --next-day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.load(cmd)
			if err != nil {
				return err
			}

			today := s.calendar.Date(0)
			start := 0
			switch {
			case cmd.Flags().Changed("slot"):
				start, err = trash.PointDayOffset(slot, today)
				if err != nil {
					return err
				}
			case s.local != nil:
				now := s.local.LocalNow()
				today = generic.DateOf(now)
				start = trash.LaunchOffset(now, nextDay)
			}

			days := trash.Lookahead(s.categories, today, start, trash.DefaultNames)
			return opts.print(cmd, days, func(w io.Writer) {
				for _, d := range days {
					printDay(w, d)
				}
			})
		},
	}
	cmd.Flags().IntVar(&slot, "slot", 0, "point-day slot, 0..9")
	cmd.Flags().BoolVar(&nextDay, "next-day", true, "answer for tomorrow in the afternoon")
	return cmd
}

func newNextCmd(opts *options) *cobra.Command {
	var (
		comparatorURL string
		apiKey        string
	)
	cmd := &cobra.Command{
		Use:   "next <category>",
		Short: "Next collection of a category code or registered name",
		Long: `Next collection of a category. The argument is a code ("burn", "can")
or the name of an "other" category. With --comparator, names that do not
match exactly are resolved through the similarity service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load(cmd)
			if err != nil {
				return err
			}
			today := s.calendar.Date(0)

			var comparator trash.Comparator
			if comparatorURL != "" {
				defaults := config.Default().Comparator
				client, err := compare.NewClient(compare.Config{
					BaseURL:   comparatorURL,
					APIKey:    apiKey,
					Timeout:   defaults.Timeout,
					RateLimit: defaults.RateLimit,
					Burst:     defaults.Burst,
				}, s.logger)
				if err != nil {
					return err
				}
				comparator = client
			}

			var res *trash.Resolution
			if comparator == nil {
				res = &trash.Resolution{
					Outcome:   trash.OutcomeNotRegistered,
					Utterance: args[0],
					Groups:    trash.GroupByCategory(s.categories, args[0], today),
				}
				if len(res.Groups) > 0 {
					res.Outcome = trash.OutcomeSlotMatch
					res.Key = args[0]
				}
			} else {
				resolver := trash.NewResolver(comparator, s.logger, nil)
				res, err = resolver.Resolve(cmd.Context(), args[0], args[0], s.categories, today)
				if err != nil {
					return err
				}
			}

			return opts.print(cmd, res, func(w io.Writer) { printResolution(w, res) })
		},
	}
	cmd.Flags().StringVar(&comparatorURL, "comparator", "", "similarity service base URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "similarity service API key")
	return cmd
}

func printResolution(w io.Writer, res *trash.Resolution) {
	switch res.Outcome {
	case trash.OutcomeNotRegistered:
		fmt.Fprintf(w, "%s is not registered\n", res.Utterance)
		return
	case trash.OutcomeConfirm:
		fmt.Fprintf(w, "did you mean %s? (score %s)\n", res.ConfirmName, res.Score)
	}
	keys := make([]string, 0, len(res.Groups))
	for key := range res.Groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		g := res.Groups[key]
		fmt.Fprintf(w, "%s: %s (%s)\n", key, g.Nearest, g.Nearest.Weekday())
	}
}

func newRemindCmd(opts *options) *cobra.Command {
	var (
		week   string
		at     string
		locale string
	)
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Reminder payload for this or next week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := trash.ParseWeek(week)
			if err != nil {
				return err
			}
			s, err := opts.load(cmd)
			if err != nil {
				return err
			}

			days := trash.RemindBody(w, s.categories, s.calendar.Date(0), trash.DefaultNames)
			if at == "" {
				return opts.print(cmd, days, func(out io.Writer) {
					for _, d := range days {
						printDay(out, d)
					}
				})
			}

			requests, err := trash.ReminderRequests(days, at, locale)
			if err != nil {
				return err
			}
			return opts.print(cmd, requests, func(out io.Writer) {
				for _, r := range requests {
					names := make([]string, 0, len(r.Entries))
					for _, e := range r.Entries {
						names = append(names, e.DisplayName)
					}
					fmt.Fprintf(out, "%s  %v\n", r.ScheduledTime, names)
				}
			})
		},
	}
	cmd.Flags().StringVar(&week, "week", "this", "this or next")
	cmd.Flags().StringVar(&at, "time", "", "local reminder time, HH:MM")
	cmd.Flags().StringVar(&locale, "locale", config.Default().Calendar.Locale, "reminder locale")
	return cmd
}
