package tile

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadFormat is returned when a format string cannot be resolved for a
// coordinate.
var ErrBadFormat = errors.New("tile: bad format string")

// placeholders match {x}, {x3}, {y}, {y04}, ... one per axis.
var placeholders = [3]*regexp.Regexp{
	regexp.MustCompile(`\{x[0-9]*\}`),
	regexp.MustCompile(`\{y[0-9]*\}`),
	regexp.MustCompile(`\{z[0-9]*\}`),
}

// FormatPath substitutes c into a tile name template such as
// "tiles/{z}/{y3}/{x3}.png". A digit suffix pads the value with leading
// zeros to that width, keeping a minus sign in front. Each axis placeholder
// must appear at least once.
func FormatPath(format string, c Coord) (string, error) {
	out := format
	for i, re := range placeholders {
		if !re.MatchString(out) {
			return "", fmt.Errorf("%w: %q has no %s placeholder", ErrBadFormat, format, axisName(i))
		}
		var subErr error
		out = re.ReplaceAllStringFunc(out, func(m string) string {
			s, err := formatAxis(m, c.Axis(i))
			if err != nil && subErr == nil {
				subErr = err
			}
			return s
		})
		if subErr != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrBadFormat, format, subErr)
		}
	}
	return out, nil
}

// ValidateFormat checks that format has every placeholder it needs.
func ValidateFormat(format string) error {
	_, err := FormatPath(format, Coord{})
	return err
}

// formatAxis renders a single placeholder such as "{x3}" for value.
func formatAxis(placeholder string, value int) (string, error) {
	width := placeholder[2 : len(placeholder)-1]
	if width == "" {
		return strconv.Itoa(value), nil
	}
	n, err := strconv.Atoi(width)
	if err != nil {
		return "", err
	}
	return padZeros(value, n)
}

// padZeros left-pads value with zeros to exactly width characters,
// counting the sign. Values that do not fit are an error.
func padZeros(value, width int) (string, error) {
	s := strconv.Itoa(value)
	if len(s) > width {
		return "", fmt.Errorf("value %d does not fit in %d digits", value, width)
	}
	if len(s) == width {
		return s, nil
	}
	pad := strings.Repeat("0", width-len(s))
	if value < 0 {
		return "-" + pad + s[1:], nil
	}
	return pad + s, nil
}

func axisName(i int) string {
	return [3]string{"{x}", "{y}", "{z}"}[i]
}
