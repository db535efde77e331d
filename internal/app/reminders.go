package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"compliance-calendar/internal/tzutil"
)

// Notifier delivers a due reminder through its method.
type Notifier interface {
	Notify(ctx context.Context, r DueReminder) error
}

// LogNotifier writes reminders to the log in place of a mail or SMS
// gateway.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, r DueReminder) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recipients := make([]string, 0, len(r.Attendees))
	for _, a := range r.Attendees {
		if a.Email != "" {
			recipients = append(recipients, a.Email)
		}
	}
	logger.InfoContext(ctx, "event reminder",
		"event_id", r.EventID,
		"title", r.Title,
		"starts", tzutil.FormatTime(r.StartAt, r.TZ, tzutil.DisplayLayout),
		"tz", r.TZ,
		"method", r.Reminder.Method,
		"minutes_before", r.Reminder.MinutesBefore,
		"message", r.Reminder.CustomMessage,
		"recipients", recipients,
	)
	return nil
}

// Dispatcher periodically hands due reminders to a Notifier and marks them
// sent. A reminder that fails to notify stays pending for the next run.
type Dispatcher struct {
	Store    EventStore
	Notifier Notifier
	Logger   *slog.Logger
	Now      func() time.Time

	cron *cron.Cron
}

func NewDispatcher(store EventStore, notifier Notifier, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Dispatcher{Store: store, Notifier: notifier, Logger: logger.With("component", "reminders"), Now: time.Now}
}

// RunOnce delivers every reminder due at the current time and returns how
// many were sent.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	now := d.Now().UTC()
	due, err := d.Store.DueReminders(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("due reminders: %w", err)
	}
	sent := 0
	var errs []error
	for _, r := range due {
		if err := d.Notifier.Notify(ctx, r); err != nil {
			d.Logger.WarnContext(ctx, "reminder not delivered", "reminder_id", r.Reminder.ID, "event_id", r.EventID, "error", err)
			errs = append(errs, err)
			continue
		}
		if err := d.Store.MarkReminderSent(ctx, r.Reminder.ID, now); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// Start schedules RunOnce on spec, for example "@every 1m".
func (d *Dispatcher) Start(spec string) error {
	d.cron = cron.New()
	_, err := d.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := d.RunOnce(ctx)
		if err != nil {
			d.Logger.Error("reminder run failed", "error", err)
		}
		if n > 0 {
			d.Logger.Info("reminders sent", "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("reminder schedule %q: %w", spec, err)
	}
	d.cron.Start()
	return nil
}

// Stop waits for a running job to finish.
func (d *Dispatcher) Stop() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
}
