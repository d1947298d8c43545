package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/models"
)

type TokenRepo struct {
	DB    DB
	Table string
}

// tokenItem mirrors the persisted record shape of the tokens table,
// keyed by userId (hash) and tokenId (range)
type tokenItem struct {
	UserID        string `dynamodbav:"userId"`
	TokenID       string `dynamodbav:"tokenId"`
	Type          string `dynamodbav:"type"`
	LinkedTokenID string `dynamodbav:"linkedTokenId,omitempty"`
	IPAddr        string `dynamodbav:"ipAddr"`
	UserAgent     string `dynamodbav:"userAgent"`
	Revoked       bool   `dynamodbav:"revoked"`
	IssuedAt      int64  `dynamodbav:"issuedAt"`
	ExpiresAt     int64  `dynamodbav:"expiresAt"`
}

func (i tokenItem) record() models.TokenRecord {
	return models.TokenRecord{
		UserID:        i.UserID,
		TokenID:       i.TokenID,
		Type:          models.TokenType(i.Type),
		LinkedTokenID: i.LinkedTokenID,
		Fingerprint: models.Fingerprint{
			IPAddr:    i.IPAddr,
			UserAgent: i.UserAgent,
		},
		Revoked:   i.Revoked,
		IssuedAt:  time.Unix(i.IssuedAt, 0),
		ExpiresAt: time.Unix(i.ExpiresAt, 0),
	}
}

func tokenKey(userID string, tokenID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId":  &types.AttributeValueMemberS{Value: userID},
		"tokenId": &types.AttributeValueMemberS{Value: tokenID},
	}
}

func (r *TokenRepo) Save(ctx context.Context, record models.TokenRecord) error {
	item, err := attributevalue.MarshalMap(tokenItem{
		UserID:        record.UserID,
		TokenID:       record.TokenID,
		Type:          string(record.Type),
		LinkedTokenID: record.LinkedTokenID,
		IPAddr:        record.Fingerprint.IPAddr,
		UserAgent:     record.Fingerprint.UserAgent,
		Revoked:       record.Revoked,
		IssuedAt:      record.IssuedAt.Unix(),
		ExpiresAt:     record.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("error while marshalling token record. Err: %w", err)
	}

	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.Table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// Get token record by composite key
// Consistent read: the record is checked right after issuance on validation
func (r *TokenRepo) Get(ctx context.Context, userID string, tokenID string) (models.TokenRecord, error) {
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.Table),
		Key:            tokenKey(userID, tokenID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.TokenRecord{}, fmt.Errorf("db error: %w", err)
	}

	if len(out.Item) == 0 {
		return models.TokenRecord{}, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	}

	var item tokenItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return models.TokenRecord{}, fmt.Errorf("error while unmarshalling token record. Err: %w", err)
	}

	return item.record(), nil
}

// Delete token record
// Reports apperrors.ErrTokenNotFound when nothing was stored under the key
func (r *TokenRepo) Delete(ctx context.Context, userID string, tokenID string) error {
	out, err := r.DB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.Table),
		Key:          tokenKey(userID, tokenID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if len(out.Attributes) == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	}

	return nil
}
