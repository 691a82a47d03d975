// Package secrets fetches the object-store key pair from AWS Secrets Manager
// by name and turns it into static credentials the s3 package can carry.
package secrets

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/medallion-data/medal"
	"github.com/pkg/errors"
)

// Getter is the slice of the Secrets Manager API this package uses.
type Getter interface {
	GetSecretValue(*secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
}

// Fetch retrieves the access key and secret key secrets by name and returns
// static credentials built from them. Failures are medal.ErrCredentials.
func Fetch(region, accessKeyName, secretKeyName string) (*credentials.Credentials, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrapf(medal.ErrCredentials, "getting session: %v", err)
	}
	return FetchFrom(secretsmanager.New(sess), accessKeyName, secretKeyName)
}

// FetchFrom is Fetch against an explicit client.
func FetchFrom(sm Getter, accessKeyName, secretKeyName string) (*credentials.Credentials, error) {
	access, err := getString(sm, accessKeyName)
	if err != nil {
		return nil, err
	}
	secret, err := getString(sm, secretKeyName)
	if err != nil {
		return nil, err
	}
	return credentials.NewStaticCredentials(access, secret, ""), nil
}

func getString(sm Getter, name string) (string, error) {
	out, err := sm.GetSecretValue(&secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", errors.Wrapf(medal.ErrCredentials, "fetching secret %q: %v", name, err)
	}
	if out.SecretString == nil {
		return "", errors.Wrapf(medal.ErrCredentials, "secret %q has no string value", name)
	}
	return *out.SecretString, nil
}
