package event

import (
	"fmt"
	"strings"
)

const (
	maxNameLength          = 100
	maxNotificationOffsets = 5
)

// ValidationError describes a single failed field check.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate runs the stateless field checks callers must satisfy before
// handing an event to the store. It returns every violation, not just the
// first one.
func Validate(e Event) []ValidationError {
	var errs []ValidationError

	name := strings.TrimSpace(e.Name)
	if name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required"})
	} else if len(name) > maxNameLength {
		errs = append(errs, ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", maxNameLength)})
	}

	if e.TargetDate.IsZero() {
		errs = append(errs, ValidationError{Field: "target_date", Message: "target date is required"})
	}

	if e.IsRecurring && !e.RecurringType.Valid() {
		errs = append(errs, ValidationError{Field: "recurring_type", Message: "recurring events require a type of yearly, monthly or weekly"})
	}

	if len(e.NotificationTimes) > maxNotificationOffsets {
		errs = append(errs, ValidationError{Field: "notification_times", Message: fmt.Sprintf("at most %d notification offsets are allowed", maxNotificationOffsets)})
	}
	for _, m := range e.NotificationTimes {
		if m < 0 {
			errs = append(errs, ValidationError{Field: "notification_times", Message: "notification offsets must be non-negative"})
			break
		}
	}

	return errs
}
