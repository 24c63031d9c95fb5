// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order when a string is used as a date.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.RFC822Z,
	time.RFC822,
	time.ANSIC,
	"02.01.2006 15:04:05",
	"02.01.2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// stringOf returns the text form of a scalar.
func stringOf(v Value) string {
	switch v := v.(type) {
	case String:
		return string(v)
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Float:
		return formatFloat(float64(v))
	case Bool:
		if v {
			return "1"
		}
		return ""
	case Time:
		return time.Time(v).Format("2006-01-02 15:04:05")
	}
	return ""
}

// intOf converts a scalar to an integer. Strings are read up to the end of
// their leading number, so "3.9" is 3 and "12abc" is 12.
func intOf(v Value) int64 {
	switch v := v.(type) {
	case Int:
		return int64(v)
	case Float:
		return truncate(float64(v))
	case Bool:
		if v {
			return 1
		}
	case String:
		prefix := numericPrefix(string(v))
		if n, err := strconv.ParseInt(prefix, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(prefix, 64)
		return truncate(f)
	case Time:
		return time.Time(v).Unix()
	}
	return 0
}

// floatOf converts a scalar to a float, reading strings like intOf does.
func floatOf(v Value) float64 {
	switch v := v.(type) {
	case Int:
		return float64(v)
	case Float:
		return float64(v)
	case Bool:
		if v {
			return 1
		}
	case String:
		f, _ := strconv.ParseFloat(numericPrefix(string(v)), 64)
		return f
	case Time:
		t := time.Time(v)
		return float64(t.UnixNano()) / float64(time.Second)
	}
	return 0
}

// timeOf interprets a value as a point in time. Numbers are unix timestamps
// rendered in loc.
func timeOf(v Value, loc *time.Location) (time.Time, bool) {
	switch v := v.(type) {
	case Time:
		return time.Time(v), true
	case Int:
		return time.Unix(int64(v), 0).In(loc), true
	case Float:
		sec, frac := math.Modf(float64(v))
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).In(loc), true
	case String:
		s := strings.TrimSpace(string(v))
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// formatFloat writes f without an exponent where that stays short. SQL
// accepts both forms.
func formatFloat(f float64) string {
	if abs := math.Abs(f); abs == 0 || (abs >= 1e-4 && abs < 1e15) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func truncate(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// numericPrefix returns the longest leading part of s, after white space,
// that reads as a decimal number.
func numericPrefix(s string) string {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := skipDigits(s, i) - i
	i += digits
	if i < len(s) && s[i] == '.' {
		if end := skipDigits(s, i+1); digits > 0 || end > i+1 {
			digits += end - i - 1
			i = end
		}
	}
	if digits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if end := skipDigits(s, j); end > j {
			i = end
		}
	}
	return s[:i]
}

func skipDigits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}
