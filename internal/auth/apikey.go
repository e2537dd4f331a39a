package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const agentKeyBytes = 32

// GenerateAgentKey returns prefix followed by 256 bits of hex-encoded entropy.
func GenerateAgentKey(prefix string) (string, error) {
	buf := make([]byte, agentKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(buf), nil
}

// LooksLikeAgentKey reports whether value carries the agent key prefix.
func LooksLikeAgentKey(value, prefix string) bool {
	return prefix != "" && strings.HasPrefix(value, prefix) && len(value) > len(prefix)
}
