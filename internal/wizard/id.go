package wizard

import (
	"strings"

	"github.com/google/uuid"
)

const registrationIDPrefix = "REG-"

// NewRegistrationID returns an identifier such as "REG-3F9A1C07".
func NewRegistrationID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return registrationIDPrefix + strings.ToUpper(raw[:8])
}
