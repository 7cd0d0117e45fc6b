package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const KeyFileName = "bq-key.json"

// Credentials is a parsed service-account key. Raw keeps the file bytes so the
// client authenticates with exactly what was on disk.
type Credentials struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`

	Raw []byte `json:"-"`
}

// DefaultPath returns bq-key.json one directory above the running executable.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "..", KeyFileName), nil
}

// Load reads and parses a service-account key file.
func Load(path string) (*Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	if creds.ProjectID == "" {
		return nil, fmt.Errorf("key file has no project_id")
	}
	creds.Raw = raw
	return &creds, nil
}
