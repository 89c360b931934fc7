package apns

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func encodePKCS8(t *testing.T, key interface{}) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func newTestKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key, encodePKCS8(t, key)
}

func testCredential(t *testing.T, env types.PushEnvironment) (types.PushCredential, *ecdsa.PrivateKey) {
	t.Helper()
	key, pemText := newTestKey(t)
	return types.PushCredential{
		KeyID:       "ABC123DEFG",
		TeamID:      "DEF123GHIJ",
		SigningKey:  pemText,
		BundleID:    "com.treebites.app",
		Environment: env,
	}, key
}
