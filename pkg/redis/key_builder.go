package redis

import "fmt"

// Visit state keys
const (
	KeyVisitSnapshot = "visits:snapshot" // JSON encoded index snapshot
	KeyVisitSavedAt  = "visits:saved_at" // unix seconds of the last snapshot
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	switch environment {
	case "development", "staging":
		prefix = "staging"
	case "test":
		prefix = "test"
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

func (kb *KeyBuilder) KeyVisitSnapshot() string {
	return kb.BuildKey(KeyVisitSnapshot)
}

func (kb *KeyBuilder) KeyVisitSavedAt() string {
	return kb.BuildKey(KeyVisitSavedAt)
}
