package model

type EventType string

const (
	TypeAudit                 EventType = "Audit"
	TypeRiskAssessment        EventType = "Risk Assessment"
	TypeTraining              EventType = "Training Session"
	TypeComplianceReview      EventType = "Compliance Review"
	TypeDocumentReview        EventType = "Document Review"
	TypeIncidentInvestigation EventType = "Incident Investigation"
	TypeMeeting               EventType = "Meeting"
	TypeDeadline              EventType = "Deadline"
	TypeOther                 EventType = "Other"
)

var EventTypes = []EventType{
	TypeAudit, TypeRiskAssessment, TypeTraining, TypeComplianceReview,
	TypeDocumentReview, TypeIncidentInvestigation, TypeMeeting, TypeDeadline, TypeOther,
}

func (t EventType) Valid() bool { return contains(EventTypes, t) }

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool { return contains(Priorities, p) }

type Status string

const (
	StatusScheduled  Status = "Scheduled"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

var Statuses = []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool { return contains(Statuses, s) }

type ReminderMethod string

const (
	MethodEmail ReminderMethod = "Email"
	MethodSMS   ReminderMethod = "SMS"
	MethodPush  ReminderMethod = "Push"
)

var ReminderMethods = []ReminderMethod{MethodEmail, MethodSMS, MethodPush}

func (m ReminderMethod) Valid() bool { return contains(ReminderMethods, m) }

type AttendeeStatus string

const (
	AttendeeInvited   AttendeeStatus = "Invited"
	AttendeeAccepted  AttendeeStatus = "Accepted"
	AttendeeDeclined  AttendeeStatus = "Declined"
	AttendeeTentative AttendeeStatus = "Tentative"
)

// StatusFilter buckets events relative to the current time when listing.
type StatusFilter string

const (
	FilterAll        StatusFilter = "All"
	FilterUpcoming   StatusFilter = "Upcoming"
	FilterInProgress StatusFilter = "In Progress"
	FilterCompleted  StatusFilter = "Completed"
	FilterOverdue    StatusFilter = "Overdue"
)

var StatusFilters = []StatusFilter{FilterAll, FilterUpcoming, FilterInProgress, FilterCompleted, FilterOverdue}

func (f StatusFilter) Valid() bool { return contains(StatusFilters, f) }

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
