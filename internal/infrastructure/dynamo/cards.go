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

// CardRepo provides typed DynamoDB operations for the cards table. It also
// writes linked_card_id on activation records, since a linked card and its
// link are stored together.
type CardRepo struct {
	client       TableAPI
	tableName    string
	recordsTable string
}

func NewCardRepo(client TableAPI, tableName, recordsTable string) *CardRepo {
	return &CardRepo{client: client, tableName: tableName, recordsTable: recordsTable}
}

func (r *CardRepo) Put(ctx context.Context, c *domain.Card) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldCardID},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("card already exists: %w", domain.ErrConflict)
	}
	return err
}

// PutLinked stores c and points its activation record at it in one
// transaction. The record must be owned by c.UserID and not linked yet;
// otherwise nothing is written and domain.ErrConflict is returned.
func (r *CardRepo) PutLinked(ctx context.Context, c *domain.Card) error {
	if c.ActivationID == nil {
		return fmt.Errorf("card has no activation: %w", domain.ErrBadRequest)
	}
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": fieldCardID},
			}},
			{Update: &types.Update{
				TableName:           aws.String(r.recordsTable),
				Key:                 strKey(fieldRecordID, *c.ActivationID),
				UpdateExpression:    aws.String("SET #card = :cid, #upd = :now"),
				ConditionExpression: aws.String("#owner = :uid AND attribute_not_exists(#card)"),
				ExpressionAttributeNames: map[string]string{
					"#card":  fieldLinkedCardID,
					"#owner": fieldOwnerUserID,
					"#upd":   fieldUpdatedAt,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":cid": &types.AttributeValueMemberS{Value: c.CardID},
					":uid": &types.AttributeValueMemberS{Value: c.UserID},
					":now": now,
				},
			}},
		},
	})
	if err == nil {
		return nil
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for i, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
				continue
			}
			if i == 0 {
				return fmt.Errorf("card already exists: %w", domain.ErrConflict)
			}
			return fmt.Errorf("activation not owned or already linked: %w", domain.ErrConflict)
		}
		return fmt.Errorf("publish linked card: %w", err)
	}
	return err
}

func (r *CardRepo) GetBySlug(ctx context.Context, slug string) (*domain.Card, error) {
	cards, err := r.query(ctx, "slug-index", fieldSlug, slug, 1)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("card not found: %w", domain.ErrNotFound)
	}
	return &cards[0], nil
}

func (r *CardRepo) ListByUser(ctx context.Context, userID string) ([]domain.Card, error) {
	return r.query(ctx, "user_id-index", "user_id", userID, 0)
}

func (r *CardRepo) query(ctx context.Context, index, attr, value string, limit int32) ([]domain.Card, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	cards := []domain.Card{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}
