package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldSessionID        = "session_id"
	fieldEnable           = "enable"
	fieldUpdatedAt        = "updated_at"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"

	fieldRecordID     = "record_id"
	fieldStatus       = "status"
	fieldOwnerUserID  = "owner_user_id"
	fieldLinkedCardID = "linked_card_id"
	fieldClaimedAt    = "claimed_at"
	fieldGuardKey     = "key"

	fieldCardID = "card_id"
	fieldSlug   = "slug"
)
