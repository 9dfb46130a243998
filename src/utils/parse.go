package utils

import (
	"fmt"
	"strings"
)

// ParseBool accepts the spellings commonly found in shell-sourced dotenv
// files: yes/no, on/off, y/n, t/f, 1/0 and the usual true/false.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", v)
	}
}
