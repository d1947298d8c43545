package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os/exec"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcdynamodb "github.com/testcontainers/testcontainers-go/modules/dynamodb"

	"github.com/gatherly/auth-service/internal/repository/dynamo"
)

const (
	TokenTable = "auth-tokens-test"
	UserTable  = "auth-users-test"
)

type DynamoContainer struct {
	Client    *awsdynamodb.Client
	Terminate func()
}

// Start container with dynamodb-local and create the token and user tables
// Stop if error happened, so you may be sure container started ok
// Should be stopped when tests stopped
func StartDynamoContainer(t *testing.T) DynamoContainer {
	t.Helper()

	// Fail if docker rootless not found
	cmd := exec.Command("docker", "info", "--format", "{{.ServerVersion}}")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("test failed: docker rootless not available or not running. Err:%s", out)
	}

	container, err := tcdynamodb.Run(t.Context(), "amazon/dynamodb-local:2.2.1")
	require.NoError(t, err, "Error happened when starting container with dynamodb-local, deal with it please")

	hostPort, err := container.ConnectionString(t.Context())
	require.NoError(t, err, "Error happened when getting connection string from container with dynamodb-local")
	t.Logf("Container with dynamodb-local started, endpoint=%v", hostPort)

	client, err := dynamo.NewClient(t.Context(), dynamo.ClientConfig{
		Region:          "us-east-1",
		Endpoint:        "http://" + hostPort,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err, "Error happened when building dynamodb client")

	createTables(t, client)

	return DynamoContainer{
		Client: client,
		Terminate: func() {
			testcontainers.CleanupContainer(t, container)
		},
	}
}

func createTables(t *testing.T, client *awsdynamodb.Client) {
	t.Helper()

	_, err := client.CreateTable(t.Context(), &awsdynamodb.CreateTableInput{
		TableName:   aws.String(TokenTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("userId"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("tokenId"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("userId"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("tokenId"), KeyType: types.KeyTypeRange},
		},
	})
	require.NoError(t, err, "Error happened when creating tokens table")

	_, err = client.CreateTable(t.Context(), &awsdynamodb.CreateTableInput{
		TableName:   aws.String(UserTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("email"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("email"), KeyType: types.KeyTypeHash},
		},
	})
	require.NoError(t, err, "Error happened when creating users table")
}

// GenerateRSAKeys returns a fresh PEM encoded RSA key pair for codec tests
func GenerateRSAKeys(t *testing.T) (privatePEM string, publicPEM string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "Error happened when generating RSA key")

	privatePEM = string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err, "Error happened when marshalling public key")

	publicPEM = string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	}))

	return privatePEM, publicPEM
}
