package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/models"
)

type UserRepo struct {
	DB    DB
	Table string
}

// userItem mirrors the users table, keyed by email
type userItem struct {
	UserID   string `dynamodbav:"userId"`
	Email    string `dynamodbav:"email"`
	Username string `dynamodbav:"username"`
	Password string `dynamodbav:"password"`
}

func (r *UserRepo) Create(ctx context.Context, username string, email string, hashedPassword string) (models.User, error) {
	user := models.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
	}

	item, err := attributevalue.MarshalMap(userItem{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Password: user.HashedPassword,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("error while marshalling user. Err: %w", err)
	}

	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.Table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})

	var conditionFailed *types.ConditionalCheckFailedException
	switch {
	case err == nil:
		return user, nil
	case errors.As(err, &conditionFailed):
		return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrUserAlreadyExists)
	default:
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.Table),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.User{}, fmt.Errorf("db error: %w", err)
	}

	if len(out.Item) == 0 {
		return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return models.User{}, fmt.Errorf("error while unmarshalling user. Err: %w", err)
	}

	return models.User{
		ID:             item.UserID,
		Username:       item.Username,
		Email:          item.Email,
		HashedPassword: item.Password,
	}, nil
}
