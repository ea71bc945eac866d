package database

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ResolveDSN returns the database DSN for this process.
//
// Resolution order: the AWS Secrets Manager secret named by DB_SECRET_ID,
// then the DB_DSN environment variable, then the supplied fallback.
func ResolveDSN(ctx context.Context, fallback string) (string, error) {
	secretID := os.Getenv("DB_SECRET_ID")
	if secretID == "" {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			return dsn, nil
		}
		return fallback, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	out, err := secretsmanager.NewFromConfig(cfg).GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch database secret %s: %w", secretID, err)
	}

	return aws.ToString(out.SecretString), nil
}
