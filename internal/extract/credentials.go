package extract

import (
	"encoding/base64"
	"fmt"
	"os"

	"google.golang.org/api/option"
)

// Credentials configures how Google Cloud clients authenticate. Sources are
// tried in a fixed priority order; the first available one wins:
//
//  1. CredentialsFile — explicit service account key path
//  2. SecretsFile — credentials file delivered by a secret manager mount
//  3. CredentialsB64 — inline base64-encoded service account JSON
//  4. Application Default Credentials
type Credentials struct {
	CredentialsFile string
	SecretsFile     string
	CredentialsB64  string
}

// CredentialSource names which entry of the chain was selected.
type CredentialSource string

const (
	SourceFile    CredentialSource = "credentials_file"
	SourceSecret  CredentialSource = "secret_manager"
	SourceInline  CredentialSource = "inline_b64"
	SourceDefault CredentialSource = "application_default"
)

// CredentialsFromEnv builds a Credentials from the conventional environment
// variables.
func CredentialsFromEnv() Credentials {
	return Credentials{
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		SecretsFile:     os.Getenv("SCOUTER_GOOGLE_CREDENTIALS_SECRET_FILE"),
		CredentialsB64:  os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON_B64"),
	}
}

// Resolve walks the chain and returns the client options for the first
// available source. A configured but unusable source (missing file, bad
// base64) is skipped with an error only when nothing later in the chain can
// serve; ambient default credentials always terminate the chain.
func (c Credentials) Resolve() ([]option.ClientOption, CredentialSource, error) {
	if c.CredentialsFile != "" {
		if _, err := os.Stat(c.CredentialsFile); err == nil {
			return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}, SourceFile, nil
		}
	}

	if c.SecretsFile != "" {
		if _, err := os.Stat(c.SecretsFile); err == nil {
			return []option.ClientOption{option.WithCredentialsFile(c.SecretsFile)}, SourceSecret, nil
		}
	}

	if c.CredentialsB64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(c.CredentialsB64)
		if err != nil {
			return nil, SourceDefault, fmt.Errorf("decoding base64 credentials: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsJSON(decoded)}, SourceInline, nil
	}

	// Nothing configured: let the client library fall back to ADC.
	return nil, SourceDefault, nil
}
