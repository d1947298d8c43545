package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/gatherly/auth-service/internal/repository"
)

// DB is the narrow slice of the DynamoDB API the repositories use
type DB interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type Storage struct {
	db         DB
	tokenTable string
	userTable  string
}

func NewStorage(db DB, tokenTable string, userTable string) *Storage {
	return &Storage{
		db:         db,
		tokenTable: tokenTable,
		userTable:  userTable,
	}
}

func (s *Storage) Tokens() repository.TokenRepo {
	return &TokenRepo{DB: s.db, Table: s.tokenTable}
}

func (s *Storage) Users() repository.UserRepo {
	return &UserRepo{DB: s.db, Table: s.userTable}
}
