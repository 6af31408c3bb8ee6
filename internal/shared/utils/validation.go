package utils

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Size limits
const (
	MaxFrameSize    = 1 * 1024 * 1024 // 1MB - largest websocket frame accepted
	MaxNodeIDLength = 64
)

// NodeIDPattern matches "<generation>:<sequence>" node identifiers
var NodeIDPattern = regexp.MustCompile(`^[0-9]+:[0-9]+$`)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateNodeID validates a node identifier received from a client
func ValidateNodeID(id string) error {
	if err := ValidateString(id, "node_id", 3, MaxNodeIDLength, true); err != nil {
		return err
	}
	if !NodeIDPattern.MatchString(id) {
		return fmt.Errorf("node_id %q is not a generation:sequence pair", id)
	}
	return nil
}

// ValidateDimension checks a container size. Zero means "use the default".
func ValidateDimension(name string, v, max float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return fmt.Errorf("%s must be a finite number", name)
	case v < 0:
		return fmt.Errorf("%s must not be negative", name)
	case max > 0 && v > max:
		return fmt.Errorf("%s %g exceeds maximum %g", name, v, max)
	}
	return nil
}
