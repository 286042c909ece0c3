package calendar

import "fmt"

// NetworkError reports a fetch, create or delete that did not complete.
// No retry is attempted.
type NetworkError struct {
	Op         string
	CalendarID string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.CalendarID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.CalendarID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func networkError(op, calendarID string, err error) error {
	if err == nil {
		return nil
	}
	return &NetworkError{Op: op, CalendarID: calendarID, Err: err}
}
