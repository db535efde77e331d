package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"compliance-calendar/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS calendar_events (
	id                   BIGSERIAL PRIMARY KEY,
	title                VARCHAR(200) NOT NULL,
	type                 TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	location             TEXT NOT NULL DEFAULT '',
	virtual_meeting_link TEXT NOT NULL DEFAULT '',
	department_ids       BIGINT[] NOT NULL DEFAULT '{}',
	equipment            TEXT[] NOT NULL DEFAULT '{}',
	meeting_room         TEXT NOT NULL DEFAULT '',
	catering_required    BOOLEAN NOT NULL DEFAULT FALSE,
	priority             TEXT NOT NULL DEFAULT 'Medium',
	status               TEXT NOT NULL DEFAULT 'Scheduled',
	all_day              BOOLEAN NOT NULL DEFAULT FALSE,
	tz                   VARCHAR(64) NOT NULL DEFAULT 'UTC',
	start_at             TIMESTAMPTZ NOT NULL,
	end_at               TIMESTAMPTZ NOT NULL,
	rrule                VARCHAR(512) NOT NULL DEFAULT '',
	send_invitations     BOOLEAN NOT NULL DEFAULT TRUE,
	organizer_id         BIGINT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL,
	cancelled_at         TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS calendar_events_start_idx ON calendar_events (start_at);
CREATE INDEX IF NOT EXISTS calendar_events_end_idx ON calendar_events (end_at);

CREATE TABLE IF NOT EXISTS calendar_event_attendees (
	id       BIGSERIAL PRIMARY KEY,
	event_id BIGINT NOT NULL REFERENCES calendar_events(id) ON DELETE CASCADE,
	user_id  BIGINT,
	email    TEXT NOT NULL DEFAULT '',
	required BOOLEAN NOT NULL DEFAULT TRUE,
	status   TEXT NOT NULL DEFAULT 'Invited'
);

CREATE TABLE IF NOT EXISTS calendar_event_reminders (
	id             BIGSERIAL PRIMARY KEY,
	event_id       BIGINT NOT NULL REFERENCES calendar_events(id) ON DELETE CASCADE,
	minutes_before INTEGER NOT NULL,
	method         TEXT NOT NULL DEFAULT 'Email',
	custom_message TEXT NOT NULL DEFAULT '',
	sent_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS calendar_event_reminders_pending_idx ON calendar_event_reminders (event_id) WHERE sent_at IS NULL;
`

const eventColumns = `id,title,type,description,location,virtual_meeting_link,department_ids,equipment,
	meeting_room,catering_required,priority,status,all_day,tz,start_at,end_at,rrule,send_invitations,
	organizer_id,created_at,updated_at,cancelled_at`

// PGStore keeps events in PostgreSQL.
type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &PGStore{DB: pool}, nil
}

func (s *PGStore) Close() { s.DB.Close() }

// Migrate creates the calendar tables when they do not exist.
func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, schema)
	return err
}

func scanEvent(row pgx.Row) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Type, &e.Description, &e.Location, &e.VirtualMeetingLink,
		&e.DepartmentIDs, &e.Equipment, &e.MeetingRoom, &e.CateringRequired, &e.Priority, &e.Status,
		&e.AllDay, &e.TZ, &e.StartAt, &e.EndAt, &e.RRule, &e.SendInvitations,
		&e.OrganizerID, &e.CreatedAt, &e.UpdatedAt, &e.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, model.ErrNotFound
	}
	return e, err
}

func (s *PGStore) CreateEvent(ctx context.Context, e *model.Event) error {
	return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		q := `INSERT INTO calendar_events
		      (title,type,description,location,virtual_meeting_link,department_ids,equipment,meeting_room,
		       catering_required,priority,status,all_day,tz,start_at,end_at,rrule,send_invitations,
		       organizer_id,created_at,updated_at,cancelled_at)
		      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$19,$20)
		      RETURNING id,created_at,updated_at`
		err := tx.QueryRow(ctx, q,
			e.Title, e.Type, e.Description, e.Location, e.VirtualMeetingLink, nonNil(e.DepartmentIDs), nonNil(e.Equipment),
			e.MeetingRoom, e.CateringRequired, e.Priority, e.Status, e.AllDay, e.TZ, e.StartAt, e.EndAt, e.RRule,
			e.SendInvitations, e.OrganizerID, now, e.CancelledAt,
		).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return err
		}
		if err := insertAttendees(ctx, tx, e); err != nil {
			return err
		}
		return insertReminders(ctx, tx, e)
	})
}

func insertAttendees(ctx context.Context, tx pgx.Tx, e *model.Event) error {
	q := `INSERT INTO calendar_event_attendees (event_id,user_id,email,required,status)
	      VALUES ($1,$2,$3,$4,$5) RETURNING id`
	for i := range e.Attendees {
		a := &e.Attendees[i]
		if a.Status == "" {
			a.Status = model.AttendeeInvited
		}
		if err := tx.QueryRow(ctx, q, e.ID, a.UserID, a.Email, a.Required, a.Status).Scan(&a.ID); err != nil {
			return fmt.Errorf("insert attendee: %w", err)
		}
	}
	return nil
}

func insertReminders(ctx context.Context, tx pgx.Tx, e *model.Event) error {
	q := `INSERT INTO calendar_event_reminders (event_id,minutes_before,method,custom_message,sent_at)
	      VALUES ($1,$2,$3,$4,$5) RETURNING id`
	for i := range e.Reminders {
		r := &e.Reminders[i]
		if err := tx.QueryRow(ctx, q, e.ID, r.MinutesBefore, r.Method, r.CustomMessage, r.SentAt).Scan(&r.ID); err != nil {
			return fmt.Errorf("insert reminder: %w", err)
		}
	}
	return nil
}

func (s *PGStore) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	e, err := scanEvent(s.DB.QueryRow(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE id=$1`, id))
	if err != nil {
		return model.Event{}, err
	}
	events := []model.Event{e}
	if err := s.loadChildren(ctx, events); err != nil {
		return model.Event{}, err
	}
	return events[0], nil
}

func (s *PGStore) UpdateEvent(ctx context.Context, e *model.Event, attendees, reminders bool) error {
	return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		q := `UPDATE calendar_events
		      SET title=$1, type=$2, description=$3, location=$4, virtual_meeting_link=$5, department_ids=$6,
		          equipment=$7, meeting_room=$8, catering_required=$9, priority=$10, status=$11, all_day=$12,
		          tz=$13, start_at=$14, end_at=$15, rrule=$16, send_invitations=$17, cancelled_at=$18, updated_at=$19
		      WHERE id=$20
		      RETURNING created_at,updated_at`
		err := tx.QueryRow(ctx, q,
			e.Title, e.Type, e.Description, e.Location, e.VirtualMeetingLink, nonNil(e.DepartmentIDs),
			nonNil(e.Equipment), e.MeetingRoom, e.CateringRequired, e.Priority, e.Status, e.AllDay,
			e.TZ, e.StartAt, e.EndAt, e.RRule, e.SendInvitations, e.CancelledAt, time.Now().UTC(), e.ID,
		).Scan(&e.CreatedAt, &e.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}
		if attendees {
			if _, err := tx.Exec(ctx, `DELETE FROM calendar_event_attendees WHERE event_id=$1`, e.ID); err != nil {
				return err
			}
			if err := insertAttendees(ctx, tx, e); err != nil {
				return err
			}
		}
		if reminders {
			if _, err := tx.Exec(ctx, `DELETE FROM calendar_event_reminders WHERE event_id=$1`, e.ID); err != nil {
				return err
			}
			if err := insertReminders(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PGStore) DeleteEvent(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM calendar_events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *PGStore) ListEvents(ctx context.Context, f EventQuery) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Start != nil {
		cond := "end_at >= " + arg(*f.Start)
		if f.KeepRecurring {
			cond = "(" + cond + " OR rrule <> '')"
		}
		where = append(where, cond)
	}
	if f.End != nil {
		where = append(where, "start_at < "+arg(*f.End))
	}
	if len(f.Types) > 0 {
		where = append(where, "type = ANY("+arg(toStrings(f.Types))+")")
	}
	if len(f.Priorities) > 0 {
		where = append(where, "priority = ANY("+arg(toStrings(f.Priorities))+")")
	}
	if len(f.Departments) > 0 {
		where = append(where, "department_ids && "+arg(f.Departments))
	}
	if f.OrganizerID != nil {
		where = append(where, "organizer_id = "+arg(*f.OrganizerID))
	}

	q := `SELECT ` + eventColumns + ` FROM calendar_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY start_at, id"

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadChildren(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadChildren fills attendees and reminders for events in two queries.
func (s *PGStore) loadChildren(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]int64, len(events))
	index := make(map[int64]int, len(events))
	for i, e := range events {
		ids[i] = e.ID
		index[e.ID] = i
	}

	rows, err := s.DB.Query(ctx, `SELECT id,event_id,user_id,email,required,status
	      FROM calendar_event_attendees WHERE event_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var a model.AttendeeRecord
		var eventID int64
		if err := rows.Scan(&a.ID, &eventID, &a.UserID, &a.Email, &a.Required, &a.Status); err != nil {
			rows.Close()
			return err
		}
		i := index[eventID]
		events[i].Attendees = append(events[i].Attendees, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.DB.Query(ctx, `SELECT id,event_id,minutes_before,method,custom_message,sent_at
	      FROM calendar_event_reminders WHERE event_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r model.ReminderRecord
		var eventID int64
		if err := rows.Scan(&r.ID, &eventID, &r.MinutesBefore, &r.Method, &r.CustomMessage, &r.SentAt); err != nil {
			return err
		}
		i := index[eventID]
		events[i].Reminders = append(events[i].Reminders, r)
	}
	return rows.Err()
}

func (s *PGStore) DueReminders(ctx context.Context, now time.Time) ([]DueReminder, error) {
	q := `SELECT r.id,r.minutes_before,r.method,r.custom_message,e.id,e.title,e.start_at,e.tz,e.organizer_id
	      FROM calendar_event_reminders r
	      JOIN calendar_events e ON e.id = r.event_id
	      WHERE r.sent_at IS NULL
	        AND e.status <> 'Cancelled'
	        AND e.start_at > $1
	        AND e.start_at - make_interval(mins => r.minutes_before) <= $1
	      ORDER BY r.id`
	rows, err := s.DB.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	var out []DueReminder
	for rows.Next() {
		var d DueReminder
		if err := rows.Scan(&d.Reminder.ID, &d.Reminder.MinutesBefore, &d.Reminder.Method, &d.Reminder.CustomMessage,
			&d.EventID, &d.Title, &d.StartAt, &d.TZ, &d.OrganizerID); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		ev, err := s.GetEvent(ctx, out[i].EventID)
		if err != nil {
			return nil, err
		}
		out[i].Attendees = ev.Attendees
	}
	return out, nil
}

func (s *PGStore) MarkReminderSent(ctx context.Context, reminderID int64, at time.Time) error {
	tag, err := s.DB.Exec(ctx, `UPDATE calendar_event_reminders SET sent_at=$1 WHERE id=$2`, at.UTC(), reminderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func toStrings[T ~string](vs []T) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}
