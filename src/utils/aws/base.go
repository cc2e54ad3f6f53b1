package aws_handler

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
)

// AWSHandler groups the AWS clients the service talks to. Only Secrets
// Manager is used, to resolve auth.jwtSecretId and
// databases.sql.passwordSecretId at start-up.
type AWSHandler struct {
	SecretManager *SecretManager
}

// NewAWSHandler opens a session in region using the default credential
// chain (environment, shared config, instance role).
func NewAWSHandler(region string) (*AWSHandler, error) {
	if region == "" {
		return nil, errors.New("aws.region (AWS_REGION) is required to resolve secrets")
	}
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &AWSHandler{SecretManager: NewSecretManager(secretsmanager.New(sess))}, nil
}
