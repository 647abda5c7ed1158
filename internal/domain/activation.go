package domain

import "time"

type ActivationStatus string

const (
	ActivationUnclaimed ActivationStatus = "unclaimed"
	ActivationClaimed   ActivationStatus = "claimed"
)

// ActivationRecord is the redemption state of one physical NFC card.
// Nullable attributes are omitted rather than stored as NULL because
// owner_user_id backs a GSI key.
type ActivationRecord struct {
	RecordID       string           `json:"id" dynamodbav:"record_id"`
	TagID          *string          `json:"tag_id" dynamodbav:"tag_id,omitempty"`
	ActivationCode string           `json:"activation_code" dynamodbav:"activation_code"`
	Status         ActivationStatus `json:"status" dynamodbav:"status"`
	OwnerUserID    *string          `json:"owner_user_id" dynamodbav:"owner_user_id,omitempty"`
	LinkedCardID   *string          `json:"linked_card_id" dynamodbav:"linked_card_id,omitempty"`
	ClaimedAt      *time.Time       `json:"claimed_at,omitempty" dynamodbav:"claimed_at,omitempty"`
	CreatedAt      time.Time        `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time        `json:"updated" dynamodbav:"updated_at"`
}

// OwnedBy reports whether the record has been claimed by userID.
func (r *ActivationRecord) OwnedBy(userID string) bool {
	return r.Status == ActivationClaimed && r.OwnerUserID != nil && *r.OwnerUserID == userID
}

// DeferredClaimIntent is staged when an anonymous visitor verifies a code and
// consumed once an account exists. It never lives in the record store.
type DeferredClaimIntent struct {
	ActivationCode string    `json:"activation_code"`
	RecordID       string    `json:"record_id"`
	StagedAt       time.Time `json:"staged_at"`
}

type CreateActivationRequest struct {
	TagID *string `json:"tag_id" validate:"omitempty,min=1,max=128"`
}

type CreateActivationBatchRequest struct {
	Count int `json:"count" validate:"required,min=1"`
}

type ActivationCodeRequest struct {
	Code string `json:"code" validate:"required,activation_code"`
}

type ClaimTicketRequest struct {
	ClaimTicket string `json:"claim_ticket" validate:"required,hexadecimal,len=32"`
}
