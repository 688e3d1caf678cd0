package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"log"
	"unicode/utf8"
)

// DecryptionFailed is the sentinel shown in place of a private message whose
// ciphertext could not be recovered. Failures are per-message and never
// propagate to the caller.
const DecryptionFailed = "[Decryption Failed]"

// Reveal recovers the displayable text of one message envelope.
//
// Group traffic and the holder's own messages are returned verbatim: the
// service never encrypts a message for transport back to its author. When no
// private key or no ciphertext is available the best remaining content is
// returned as a degraded display. Otherwise the base64 ciphertext is
// decrypted with RSA-OAEP and decoded as UTF-8.
func Reveal(encryptedContent, plaintextContent string, isPrivate bool, senderID, currentUserID string, privateKey *rsa.PrivateKey) string {
	if !isPrivate || senderID == currentUserID {
		return plaintextContent
	}
	if privateKey == nil || encryptedContent == "" {
		if encryptedContent != "" {
			return encryptedContent
		}
		return plaintextContent
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedContent)
	if err != nil {
		log.Printf("crypto: undecodable ciphertext from %s: %v", senderID, err)
		return DecryptionFailed
	}

	plaintext, err := rsa.DecryptOAEP(sha1.New(), nil, privateKey, ciphertext, nil)
	if err != nil {
		log.Printf("crypto: decryption failed for message from %s: %v", senderID, err)
		return DecryptionFailed
	}
	if !utf8.Valid(plaintext) {
		log.Printf("crypto: decrypted payload from %s is not valid UTF-8", senderID)
		return DecryptionFailed
	}

	return string(plaintext)
}

// EncryptFor encrypts plaintext for a recipient public key and returns the
// base64 ciphertext in the wire format Reveal expects.
func EncryptFor(publicKey *rsa.PublicKey, plaintext string) (string, error) {
	ciphertext, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, publicKey, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("encrypt for recipient: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
