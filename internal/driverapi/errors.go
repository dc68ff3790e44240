package driverapi

import "fmt"

type Op string

const (
	OpList    Op = "list"
	OpApprove Op = "approve"
	OpReject  Op = "reject"
)

// FetchError is returned for any failed call: transport errors, non-success
// statuses and undecodable list bodies. Backend error payloads are never read.
type FetchError struct {
	Op     Op
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s drivers: request failed with status %d", e.Op, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s drivers: request failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s drivers: request failed", e.Op)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
