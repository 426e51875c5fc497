package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	HashIdentifier(id string) string
	DisplayName(fieldName string) string
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// HashIdentifier returns a short one-way hash of a user identifier so
// analytics events never carry the raw ID.
func (u *utils) HashIdentifier(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:16]
}

// DisplayName turns a form field name into something speakable:
// "first_name" -> "First Name", "email-address" -> "Email Address".
func (u *utils) DisplayName(fieldName string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(fieldName)
	words := strings.Fields(cleaned)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return fieldName
	}
	return strings.Join(words, " ")
}
