package notify

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	RunID   string // Optional run reference
	Fields  []Field
}

// Field is a labelled figure of a notification, rendered as a column by
// channels that support it
type Field struct {
	Label string
	Value string
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers and returns every failure
func (m *MultiNotifier) Send(n Notification) error {
	var result *multierror.Error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// New builds the notifier set from the configured channels
func New(desktop bool, slackWebhook string) Notifier {
	var notifiers []Notifier
	if desktop {
		notifiers = append(notifiers, NewDesktopNotifier(true))
	}
	if slackWebhook != "" {
		notifiers = append(notifiers, NewSlackNotifier(slackWebhook))
	}
	if len(notifiers) == 0 {
		return NoopNotifier{}
	}
	return NewMultiNotifier(notifiers...)
}

// FromReport builds the completion notification for a finished run
func FromReport(report *domain.RunReport) Notification {
	n := Notification{
		Title: "Load spike completed",
		Type:  NotifySuccess,
		RunID: report.ID,
		Message: fmt.Sprintf("%d CPU workers, %s of %s memory held for %ds",
			report.CPUWorkerCount,
			humanize.IBytes(report.MemoryAllocatedBytes),
			humanize.IBytes(report.MemoryTargetBytes),
			report.RunDurationSeconds),
		Fields: []Field{
			{Label: "CPU workers", Value: fmt.Sprint(report.CPUWorkerCount)},
			{Label: "Memory held", Value: humanize.IBytes(report.MemoryAllocatedBytes) + " / " + humanize.IBytes(report.MemoryTargetBytes)},
			{Label: "Hold time", Value: fmt.Sprintf("%ds", report.RunDurationSeconds)},
		},
	}

	if report.FailedAllocations > 0 || report.AbandonedWorkers > 0 {
		n.Type = NotifyWarning
		n.Title = "Load spike completed with problems"
		if report.FailedAllocations > 0 {
			n.Message += fmt.Sprintf(", %d allocation(s) failed", report.FailedAllocations)
			n.Fields = append(n.Fields, Field{Label: "Failed allocations", Value: fmt.Sprint(report.FailedAllocations)})
		}
		if report.AbandonedWorkers > 0 {
			n.Message += fmt.Sprintf(", %d worker(s) abandoned", report.AbandonedWorkers)
			n.Fields = append(n.Fields, Field{Label: "Abandoned workers", Value: fmt.Sprint(report.AbandonedWorkers)})
		}
	}

	return n
}

// FromError builds the notification for a run that never spawned workers
func FromError(err error) Notification {
	return Notification{
		Title:   "Load spike failed",
		Message: err.Error(),
		Type:    NotifyError,
	}
}
