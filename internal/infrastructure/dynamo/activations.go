package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tapcard-api/internal/domain"
)

// Guard rows in the keys table emulate unique constraints:
// one row per activation code and one per physical tag id.
const (
	codeGuardPrefix = "code#"
	tagGuardPrefix  = "tag#"
)

// Positions of the items written by Insert, used to read cancellation reasons.
const (
	insertCodeGuard = iota
	insertRecord
	insertTagGuard
)

// ActivationRepo stores activation records. It is the only writer of
// status and owner_user_id.
type ActivationRepo struct {
	client       TableAPI
	recordsTable string
	keysTable    string
}

func NewActivationRepo(client TableAPI, recordsTable, keysTable string) *ActivationRepo {
	return &ActivationRepo{client: client, recordsTable: recordsTable, keysTable: keysTable}
}

// Insert writes a new record together with its code (and tag) guard rows in a
// single transaction. A taken code yields domain.ErrCodeCollision; a taken tag
// yields domain.ErrConflict.
func (r *ActivationRepo) Insert(ctx context.Context, rec *domain.ActivationRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal activation record: %w", err)
	}
	items := []types.TransactWriteItem{
		{Put: r.guardPut(codeGuardPrefix+rec.ActivationCode, rec.RecordID)},
		{Put: &types.Put{
			TableName:                aws.String(r.recordsTable),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{"#id": fieldRecordID},
		}},
	}
	if rec.TagID != nil {
		items = append(items, types.TransactWriteItem{Put: r.guardPut(tagGuardPrefix+*rec.TagID, rec.RecordID)})
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return classifyInsertCancellation(tce.CancellationReasons, err)
	}
	return err
}

func (r *ActivationRepo) guardPut(key, recordID string) *types.Put {
	return &types.Put{
		TableName: aws.String(r.keysTable),
		Item: map[string]types.AttributeValue{
			fieldGuardKey: &types.AttributeValueMemberS{Value: key},
			fieldRecordID: &types.AttributeValueMemberS{Value: recordID},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": fieldGuardKey},
	}
}

// classifyInsertCancellation maps the per-item reasons of a cancelled insert
// transaction to domain errors.
func classifyInsertCancellation(reasons []types.CancellationReason, cause error) error {
	for i, reason := range reasons {
		if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
			continue
		}
		switch i {
		case insertCodeGuard:
			return domain.ErrCodeCollision
		case insertTagGuard:
			return fmt.Errorf("tag already registered: %w", domain.ErrConflict)
		default:
			return fmt.Errorf("record id already exists: %w", domain.ErrConflict)
		}
	}
	return fmt.Errorf("insert activation record: %w", cause)
}

// Get returns a record by id using a strongly consistent read.
func (r *ActivationRepo) Get(ctx context.Context, recordID string) (*domain.ActivationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.recordsTable),
		Key:            strKey(fieldRecordID, recordID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("activation record not found: %w", domain.ErrNotFound)
	}
	var rec domain.ActivationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByCode resolves a code through its guard row, whatever the record status.
func (r *ActivationRepo) GetByCode(ctx context.Context, code string) (*domain.ActivationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.keysTable),
		Key:            strKey(fieldGuardKey, codeGuardPrefix+code),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	idAttr, ok := out.Item[fieldRecordID].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("activation code not found: %w", domain.ErrNotFound)
	}
	return r.Get(ctx, idAttr.Value)
}

// FindClaimable returns the record for code only while it is unclaimed.
// Unknown and claimed codes produce the same not-found error.
func (r *ActivationRepo) FindClaimable(ctx context.Context, code string) (*domain.ActivationRecord, error) {
	rec, err := r.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("claimable activation not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	if rec.Status != domain.ActivationUnclaimed {
		return nil, fmt.Errorf("claimable activation not found: %w", domain.ErrNotFound)
	}
	return rec, nil
}

// Claim moves a record from unclaimed to claimed in one conditional write.
// A concurrent winner makes this fail with domain.ErrAlreadyClaimed.
func (r *ActivationRepo) Claim(ctx context.Context, recordID, userID string) (*domain.ActivationRecord, error) {
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.recordsTable),
		Key:                 strKey(fieldRecordID, recordID),
		UpdateExpression:    aws.String("SET #st = :claimed, #owner = :uid, #claimed = :now, #upd = :now"),
		ConditionExpression: aws.String("attribute_exists(#id) AND #st = :unclaimed"),
		ExpressionAttributeNames: map[string]string{
			"#id":      fieldRecordID,
			"#st":      fieldStatus,
			"#owner":   fieldOwnerUserID,
			"#claimed": fieldClaimedAt,
			"#upd":     fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":claimed":   &types.AttributeValueMemberS{Value: string(domain.ActivationClaimed)},
			":unclaimed": &types.AttributeValueMemberS{Value: string(domain.ActivationUnclaimed)},
			":uid":       &types.AttributeValueMemberS{Value: userID},
			":now":       now,
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if ccf.Item == nil {
				return nil, fmt.Errorf("activation record not found: %w", domain.ErrNotFound)
			}
			return nil, domain.ErrAlreadyClaimed
		}
		return nil, err
	}
	var rec domain.ActivationRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByOwner returns the records claimed by userID via the owner GSI.
func (r *ActivationRepo) ListByOwner(ctx context.Context, userID string) ([]domain.ActivationRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.recordsTable),
		IndexName:              aws.String("owner_user_id-index"),
		KeyConditionExpression: aws.String("#owner = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#owner": fieldOwnerUserID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	recs := []domain.ActivationRecord{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ScanPage returns a page of all records, claimed or not.
// cursor is a base64-encoded record_id used as ExclusiveStartKey.
func (r *ActivationRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.ActivationRecord, string, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.recordsTable),
		Limit:     aws.Int32(limit),
	}
	if cursor != "" {
		recordID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey(fieldRecordID, recordID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	recs := []domain.ActivationRecord{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey[fieldRecordID].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return recs, nextCursor, nil
}

// Ping reads a guard key that never exists. It fails only when the keys
// table is unreachable or missing.
func (r *ActivationRepo) Ping(ctx context.Context) error {
	_, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.keysTable),
		Key:       strKey(fieldGuardKey, "ping#"),
	})
	return err
}
