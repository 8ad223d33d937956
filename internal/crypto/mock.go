package crypto

import (
	"context"
	"strings"
)

// MockEncryptor implements Encryptor for local development and tests where
// no KMS is available. It prefixes the plaintext so mocked values are
// recognizable in a table dump.
type MockEncryptor struct{}

func NewMockEncryptor() *MockEncryptor {
	return &MockEncryptor{}
}

func (m *MockEncryptor) Encrypt(_ context.Context, plaintext string) (string, error) {
	return "mock:" + plaintext, nil
}

func (m *MockEncryptor) Decrypt(_ context.Context, ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "mock:"), nil
}
