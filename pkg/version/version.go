// Package version converts ArcGIS Server version numbers into semantic versions
package version

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var ErrInvalidVersion = fmt.Errorf("invalid version")

// Parse returns canonical semantic version, i.e. "v10.9.1", of a version value.
//
// Numeric values follow the server convention where the second digit of the
// fractional part is a patch number: 10.91 is 10.9.1 and 11.1 is 11.1.0.
// Strings are parsed as dotted versions with an optional "v" prefix.
func Parse(value any) (string, error) {
	switch v := value.(type) {
	case float64:
		return fromNumber(strconv.FormatFloat(v, 'f', -1, 64))
	case float32:
		return fromNumber(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case int:
		return fromNumber(strconv.Itoa(v))
	case json.Number:
		return fromNumber(v.String())
	case string:
		return fromString(v)
	}

	return "", fmt.Errorf("%w: %v (%T)", ErrInvalidVersion, value, value)
}

// AtLeast reports if version is equal to or newer than the minimal one
func AtLeast(version any, minimal any) (bool, error) {
	have, err := Parse(version)
	if err != nil {
		return false, err
	}
	want, err := Parse(minimal)
	if err != nil {
		return false, err
	}

	return semver.Compare(have, want) >= 0, nil
}

func fromNumber(number string) (string, error) {
	major, fraction, _ := strings.Cut(number, ".")
	if _, err := strconv.Atoi(major); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, number)
	}

	minor, patch := "0", "0"
	switch len(fraction) {
	case 0:
	case 1:
		minor = fraction
	default:
		minor, patch = fraction[:1], fraction[1:]
	}

	return canonical(fmt.Sprintf("v%s.%s.%s", major, minor, patch))
}

func fromString(value string) (string, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "v") {
		value = "v" + value
	}
	return canonical(value)
}

func canonical(value string) (string, error) {
	if !semver.IsValid(value) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, value)
	}
	return semver.Canonical(value), nil
}
