package descriptor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-procdesc/pkg/errors"

	units "github.com/docker/go-units"
)

// same grammar units.RAMInBytes accepts
var memorySizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)*) ?([kKmMgGtTpP])?[iI]?[bB]?$`)

var memoryMultipliers = map[string]float64{
	"k": units.KiB,
	"m": units.MiB,
	"g": units.GiB,
	"t": units.TiB,
	"p": units.PiB,
}

// ParseMemorySize converts a human-readable size such as "512M" or "1G" to bytes.
// Suffixes K, M, G, T and P are binary multipliers; a bare number is bytes.
func ParseMemorySize(size string) (int64, error) {
	trimmed := strings.TrimSpace(size)
	if trimmed == "" {
		return 0, errors.NewValidationError("memory size cannot be empty", nil)
	}

	bytes, err := units.RAMInBytes(trimmed)
	if err != nil {
		return 0, errors.NewValidationError(
			fmt.Sprintf("invalid memory size %q, expected <number><K|M|G>", size),
			err,
		)
	}
	if overflowsInt64(trimmed) {
		return 0, errors.NewValidationError(fmt.Sprintf("memory size out of range: %q", size), nil)
	}
	if bytes <= 0 {
		return 0, errors.NewValidationError(fmt.Sprintf("memory size must be positive: %q", size), nil)
	}

	return bytes, nil
}

// overflowsInt64 reports whether the byte count does not fit in int64;
// RAMInBytes converts from float64 without a range check
func overflowsInt64(size string) bool {
	matches := memorySizePattern.FindStringSubmatch(size)
	if matches == nil {
		return false
	}
	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return false
	}
	if mul, ok := memoryMultipliers[strings.ToLower(matches[2])]; ok {
		value *= mul
	}
	return value >= math.MaxInt64
}

// FormatMemorySize renders bytes with binary units, e.g. 1073741824 -> "1GiB"
func FormatMemorySize(bytes int64) string {
	return units.BytesSize(float64(bytes))
}
