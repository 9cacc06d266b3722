package schema

import "fmt"

// AccessRequestStatus is the explicit quick-share grant state. The stored
// form is the plain string the web client already knows.
type AccessRequestStatus string

const (
	AccessRequestPending  AccessRequestStatus = "pending"
	AccessRequestApproved AccessRequestStatus = "approved"
)

// There is no rejected or expired state: expiry is enforced by the scheduled
// deletion task, 30 minutes after the last update to the document.

// CanTransitionTo returns whether a status move is legal. The only legal
// move is pending -> approved.
func (s AccessRequestStatus) CanTransitionTo(to AccessRequestStatus) bool {
	return s == AccessRequestPending && to == AccessRequestApproved
}

// AccessRequest is the grant object backing quick share. The document ID is
// never sent to a client before approval, only its encrypted form.
type AccessRequest struct {
	UID       string              `json:"uid" bson:"uid"`
	Status    AccessRequestStatus `json:"status" bson:"status"`
	CreatedAt string              `json:"createdAt" bson:"createdAt"`
}

// Transition moves the request to a new status, rejecting anything outside
// the transition table.
func (r *AccessRequest) Transition(to AccessRequestStatus) error {
	if !r.Status.CanTransitionTo(to) {
		return fmt.Errorf("illegal access request transition %q -> %q", r.Status, to)
	}
	r.Status = to
	return nil
}
