package models

import (
	"fmt"
	"strings"
)

// ParseBuildType normalizes a user-supplied build type. The empty string
// means release.
func ParseBuildType(value string) (BuildType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "release":
		return Release, nil
	case "debug":
		return Debug, nil
	case "relwithdebinfo":
		return RelWithDebInfo, nil
	default:
		return "", fmt.Errorf("unknown build type: %s", value)
	}
}
