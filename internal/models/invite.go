package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusSent     InviteStatus = "sent"
	InviteStatusFailed   InviteStatus = "failed"
	InviteStatusAccepted InviteStatus = "accepted"
)

// ErrInvalidTransition is returned when a status change would move an invite backwards.
var ErrInvalidTransition = errors.New("invalid invite status transition")

var inviteTransitions = map[InviteStatus][]InviteStatus{
	InviteStatusPending: {InviteStatusSent, InviteStatusFailed},
	InviteStatusFailed:  {InviteStatusSent, InviteStatusFailed},
	InviteStatusSent:    {InviteStatusSent, InviteStatusAccepted},
}

// CanTransitionTo reports whether next is reachable from s. Accepted is terminal.
func (s InviteStatus) CanTransitionTo(next InviteStatus) bool {
	for _, allowed := range inviteTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Invite is the record stored at club_invites/{clubId}/{inviteId}.
type Invite struct {
	ID          string       `json:"id"`
	Email       string       `json:"email,omitempty"`
	ClubID      string       `json:"clubId"`
	ClubName    string       `json:"clubName"`
	InviterName string       `json:"inviterName"`
	InvitedBy   string       `json:"invitedBy"`
	CreatedAt   int64        `json:"createdAt"`
	Status      InviteStatus `json:"status"`
	UpdatedAt   int64        `json:"updatedAt,omitempty"`
	SentAt      int64        `json:"sentAt,omitempty"`
	AcceptedAt  int64        `json:"acceptedAt,omitempty"`
	AcceptedBy  string       `json:"acceptedBy,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// IsAccepted indicates whether the invite has already been consumed.
func (i Invite) IsAccepted() bool {
	return i.Status == InviteStatusAccepted
}

// RestrictsEmail reports whether only one address may accept the invite.
func (i Invite) RestrictsEmail() bool {
	return strings.TrimSpace(i.Email) != ""
}

// Advance moves the invite to next, stamping the matching timestamps.
func (i *Invite) Advance(next InviteStatus, now time.Time) error {
	if !i.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.Status, next)
	}
	i.Status = next
	i.UpdatedAt = now.Unix()
	switch next {
	case InviteStatusSent:
		i.SentAt = now.Unix()
		i.Error = ""
	case InviteStatusAccepted:
		i.AcceptedAt = now.Unix()
	}
	return nil
}

// InviteValidation is the answer of the invite validation gateway.
type InviteValidation struct {
	Valid       bool   `json:"valid"`
	Message     string `json:"message,omitempty"`
	ClubID      string `json:"clubId,omitempty"`
	ClubName    string `json:"clubName,omitempty"`
	InviterName string `json:"inviterName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Invite rebuilds the validated invite the reconciler consumes.
func (v InviteValidation) Invite(inviteID string) Invite {
	return Invite{
		ID:          inviteID,
		Email:       v.Email,
		ClubID:      v.ClubID,
		ClubName:    v.ClubName,
		InviterName: v.InviterName,
		Status:      InviteStatusSent,
	}
}

// SendInviteRequest is the body of SendClubInvite.
type SendInviteRequest struct {
	Email       string `json:"email"`
	ClubID      string `json:"clubId"`
	ClubName    string `json:"clubName"`
	InviterName string `json:"inviterName"`
	InviteID    string `json:"inviteId"`
}
