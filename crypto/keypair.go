package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const (
	rsaPrivatePEMType = "RSA PRIVATE KEY"
	rsaPublicPEMType  = "RSA PUBLIC KEY"

	// DefaultRSAKeyBits is the modulus size used when generating a keypair.
	DefaultRSAKeyBits = 2048
)

// EnsureRSAKeyPair loads an RSA keypair from disk, generating it on first run.
func EnsureRSAKeyPair(privatePath, publicPath string) (*rsa.PrivateKey, error) {
	privateKey, err := LoadRSAPrivateKey(privatePath)
	if err == nil {
		storedPublic, pubErr := LoadRSAPublicKey(publicPath)
		if pubErr != nil || !storedPublic.Equal(&privateKey.PublicKey) {
			if err := SaveRSAPublicKey(publicPath, &privateKey.PublicKey); err != nil {
				return nil, err
			}
		}
		return privateKey, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	privateKey, err = rsa.GenerateKey(rand.Reader, DefaultRSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA keypair: %w", err)
	}

	if err := SaveRSAPrivateKey(privatePath, privateKey); err != nil {
		return nil, err
	}
	if err := SaveRSAPublicKey(publicPath, &privateKey.PublicKey); err != nil {
		return nil, err
	}

	return privateKey, nil
}

// LoadRSAPrivateKey loads an RSA private key from a PEM file.
func LoadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read RSA private key: %w", err)
	}
	return ParsePrivateKeyPEM(raw)
}

// LoadRSAPublicKey loads an RSA public key from a PEM file.
func LoadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read RSA public key: %w", err)
	}
	return ParsePublicKeyPEM(raw)
}

// ParsePrivateKeyPEM decodes a PKCS#1 RSA private key from PEM bytes.
func ParsePrivateKeyPEM(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("decode RSA private PEM: no PEM block")
	}
	if block.Type != rsaPrivatePEMType {
		return nil, fmt.Errorf("decode RSA private PEM: unexpected type %q", block.Type)
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse RSA private key: %w", err)
	}
	return key, nil
}

// ParsePublicKeyPEM decodes a PKCS#1 RSA public key from PEM bytes.
func ParsePublicKeyPEM(raw []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("decode RSA public PEM: no PEM block")
	}
	if block.Type != rsaPublicPEMType {
		return nil, fmt.Errorf("decode RSA public PEM: unexpected type %q", block.Type)
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse RSA public key: %w", err)
	}
	return key, nil
}

// MarshalPrivateKeyPEM encodes an RSA private key as PKCS#1 PEM bytes.
func MarshalPrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  rsaPrivatePEMType,
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// MarshalPublicKeyPEM encodes an RSA public key as PKCS#1 PEM bytes.
func MarshalPublicKeyPEM(key *rsa.PublicKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  rsaPublicPEMType,
		Bytes: x509.MarshalPKCS1PublicKey(key),
	})
}

// SaveRSAPrivateKey writes an RSA private key PEM file with 0600 permissions.
func SaveRSAPrivateKey(path string, key *rsa.PrivateKey) error {
	if err := os.WriteFile(path, MarshalPrivateKeyPEM(key), 0o600); err != nil {
		return fmt.Errorf("write RSA private key: %w", err)
	}
	return nil
}

// SaveRSAPublicKey writes an RSA public key PEM file.
func SaveRSAPublicKey(path string, key *rsa.PublicKey) error {
	if err := os.WriteFile(path, MarshalPublicKeyPEM(key), 0o644); err != nil {
		return fmt.Errorf("write RSA public key: %w", err)
	}
	return nil
}

// KeyFingerprint returns the truncated SHA-256 hex fingerprint of a public key.
func KeyFingerprint(key *rsa.PublicKey) string {
	sum := sha256.Sum256(x509.MarshalPKCS1PublicKey(key))
	return hex.EncodeToString(sum[:16])
}
