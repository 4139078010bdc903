package domain

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.trai.ch/zerr"
)

// ParseSize parses a human byte size into bytes. A bare number is taken
// as raw bytes; otherwise a K/M/G/T suffix (optionally followed by B or
// iB, case insensitive) applies binary multipliers, so "5G" is 5 GiB.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)

	if bytes, err := strconv.ParseUint(s, 10, 64); err == nil {
		return bytes, nil
	}

	num, suffix := splitNumberSuffix(s)
	if num == "" {
		return 0, zerr.With(zerr.Wrap(ErrInvalidArgument, "size has no numeric part"), "value", s)
	}

	var multiplier uint64
	switch strings.ToUpper(suffix) {
	case "", "B":
		multiplier = 1
	case "K", "KB", "KIB":
		multiplier = 1 << 10
	case "M", "MB", "MIB":
		multiplier = 1 << 20
	case "G", "GB", "GIB":
		multiplier = 1 << 30
	case "T", "TB", "TIB":
		multiplier = 1 << 40
	default:
		return 0, zerr.With(zerr.With(zerr.Wrap(ErrInvalidArgument, "unknown size suffix"), "value", s), "suffix", suffix)
	}

	base, err := strconv.ParseFloat(num, 64)
	if err != nil || base < 0 {
		return 0, zerr.With(zerr.Wrap(ErrInvalidArgument, "invalid size number"), "value", s)
	}

	return uint64(base * float64(multiplier)), nil
}

// FormatSize renders bytes in binary units for log output, e.g. "2.5 GiB".
func FormatSize(bytes uint64) string {
	return humanize.IBytes(bytes)
}

func splitNumberSuffix(s string) (num, suffix string) {
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	return s[:i], strings.TrimSpace(s[i:])
}
