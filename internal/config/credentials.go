package config

import (
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"featurepull/blob"
)

// Object storage credentials are read from these variables, and only at the
// process boundary; everything below cmd receives them explicitly.
const (
	EnvEndpointURL     = "FEAST_S3_ENDPOINT_URL"
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvRegion          = "AWS_REGION"
)

var credentialKeys = map[string]string{
	EnvEndpointURL:     "endpoint_url",
	EnvAccessKeyID:     "access_key_id",
	EnvSecretAccessKey: "secret_access_key",
	EnvRegion:          "region",
}

// LoadCredentials reads whatever is set; absent values stay empty and are
// rejected later, before any fetch is attempted.
func LoadCredentials() (blob.Credentials, error) {
	k := koanf.New(".")
	err := k.Load(env.Provider("", ".", func(s string) string {
		return credentialKeys[s]
	}), nil)
	if err != nil {
		return blob.Credentials{}, err
	}
	return blob.Credentials{
		EndpointURL:     k.String("endpoint_url"),
		AccessKeyID:     k.String("access_key_id"),
		SecretAccessKey: k.String("secret_access_key"),
		Region:          k.String("region"),
	}, nil
}
