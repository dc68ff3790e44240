package review

import "errors"

type NoticeKind string

const (
	NoticeSuccess    NoticeKind = "success"
	NoticeError      NoticeKind = "error"
	NoticeValidation NoticeKind = "validation"
)

// Notice is a transient message shown to the operator once.
type Notice struct {
	Kind    NoticeKind
	Message string
}

var (
	// ErrEmptySelection is the validation error for rejecting with nothing flagged.
	ErrEmptySelection   = errors.New("at least one field must be selected to reject")
	ErrMutationInFlight = errors.New("a decision for this driver is already being sent")
	ErrNoDriver         = errors.New("no driver is open for review")
	ErrUnknownField     = errors.New("unknown review field")
)

const (
	msgApproved         = "Driver approved successfully!"
	msgRejected         = "Driver rejected successfully!"
	msgApproveFailed    = "Failed to approve driver"
	msgRejectFailed     = "Failed to reject driver"
	msgSelectionMissing = "Please select at least one field that needs to be updated"
	msgInFlight         = "A decision for this driver is already being processed"
)
