package main

import (
	"fmt"
	"time"

	"github.com/Eursukkul/outing-service/config"
	"github.com/Eursukkul/outing-service/internal/auth"
	"github.com/Eursukkul/outing-service/internal/clock"
	"github.com/Eursukkul/outing-service/internal/service"
	"github.com/Eursukkul/outing-service/pkg/rabbitmq"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Bring every outing state up to date once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := service.NewStateUpdater(a.outings, clock.RealClock{}, a.logger).UpdateAllStates(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d outing(s) updated\n", n)
		return nil
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Send reminders for outings starting within a window",
	Long: "Send one reminder per outing starting within [--from, --to).\n" +
		"Without flags the window is the next sweep interval, REMINDER_LEAD from now.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		from, to, err := reminderWindow(cmd, time.Now(), a.cfg.ReminderLead, a.cfg.SweepInterval)
		if err != nil {
			return err
		}

		publisher, err := rabbitmq.NewPublisher(a.cfg.RabbitURL, a.logger)
		if err != nil {
			return err
		}
		defer publisher.Close()

		sent, err := service.NewReminderService(a.outings, publisher, a.logger).DispatchDue(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d reminder(s) sent for [%s, %s)\n", sent, from.Format(time.RFC3339), to.Format(time.RFC3339))
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetUint("user")
		admin, _ := cmd.Flags().GetBool("admin")
		if userID == 0 {
			return fmt.Errorf("--user is required")
		}

		cfg := config.Load()
		role := auth.RoleMember
		if admin {
			role = auth.RoleAdmin
		}
		token, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpireHours).Generate(userID, role)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	remindersCmd.Flags().String("from", "", "window start, RFC3339")
	remindersCmd.Flags().String("to", "", "window end, RFC3339")

	tokenCmd.Flags().Uint("user", 0, "user id carried by the token")
	tokenCmd.Flags().Bool("admin", false, "grant the admin role")
}

// reminderWindow reads --from/--to, defaulting to [now+lead, now+lead+interval).
func reminderWindow(cmd *cobra.Command, now time.Time, lead, interval time.Duration) (time.Time, time.Time, error) {
	from := now.Add(lead)
	if s, _ := cmd.Flags().GetString("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		from = t
	}

	to := from.Add(interval)
	if s, _ := cmd.Flags().GetString("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		to = t
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must be before --to")
	}
	return from, to, nil
}
