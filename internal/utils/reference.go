package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateOrderReference builds a short human-quotable order reference,
// unique enough to be the storage key
func GenerateOrderReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("MG-%s", id[:8])
}
