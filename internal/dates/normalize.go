package dates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when no supported representation matches.
var ErrInvalidDate = errors.New("invalid date")

// SlashOrder decides how NN/NN/YYYY dates are read when both numbers could be a month.
type SlashOrder string

const (
	DayFirst   SlashOrder = "DMY"
	MonthFirst SlashOrder = "MDY"
)

// ParseSlashOrder maps a config value onto a SlashOrder, defaulting to DayFirst.
func ParseSlashOrder(s string) SlashOrder {
	if strings.EqualFold(strings.TrimSpace(s), string(MonthFirst)) {
		return MonthFirst
	}
	return DayFirst
}

// Epoch values at or above this magnitude are milliseconds, below it seconds.
const millisThreshold = 100_000_000_000

var (
	isoLayouts = []string{
		time.DateOnly,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"20060102",
	}

	rfc2822Layouts = []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		"02 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04 -0700",
		time.RFC822Z,
		time.RFC822,
	}

	monthNameLayouts = []string{
		"Jan 2, 2006",
		"January 2, 2006",
		"Jan 2 2006",
		"January 2 2006",
		"2 Jan 2006",
		"2 January 2006",
		"Mon, Jan 2, 2006",
		"Monday, January 2, 2006",
	}

	slashPattern = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})$`)
)

// Normalizer converts heterogeneous stored date values into calendar dates.
// The zero value reads slash dates day-first and epoch values in UTC.
type Normalizer struct {
	SlashOrder SlashOrder
	// EpochLocation is the zone epoch timestamps are projected into before the date is taken.
	EpochLocation *time.Location
	// Warnf receives ambiguity warnings; nil means log.Printf.
	Warnf func(format string, args ...any)
}

// NewNormalizer returns a Normalizer with the given slash order.
func NewNormalizer(order SlashOrder) *Normalizer {
	return &Normalizer{SlashOrder: order}
}

// Normalize returns the calendar date represented by raw, or ErrInvalidDate.
func (n *Normalizer) Normalize(raw any) (Date, error) {
	switch v := raw.(type) {
	case nil:
		return Date{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	case Date:
		if v.IsZero() {
			return Date{}, fmt.Errorf("%w: zero date", ErrInvalidDate)
		}
		return v, nil
	case time.Time:
		if v.IsZero() {
			return Date{}, fmt.Errorf("%w: zero time", ErrInvalidDate)
		}
		return Of(v), nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return Date{}, fmt.Errorf("%w: zero time", ErrInvalidDate)
		}
		return Of(*v), nil
	case json.RawMessage:
		return n.normalizeJSON(v)
	case []byte:
		return n.normalizeJSON(v)
	case map[string]any:
		return n.normalizeTimestampMap(v)
	case json.Number:
		return n.normalizeNumber(v.String())
	case int:
		return n.fromEpoch(int64(v)), nil
	case int32:
		return n.fromEpoch(int64(v)), nil
	case int64:
		return n.fromEpoch(v), nil
	case uint32:
		return n.fromEpoch(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Date{}, fmt.Errorf("%w: epoch out of range", ErrInvalidDate)
		}
		return n.fromEpoch(int64(v)), nil
	case float64:
		return n.fromFloatEpoch(v)
	case float32:
		return n.fromFloatEpoch(float64(v))
	case string:
		return n.normalizeString(v)
	default:
		return Date{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidDate, raw)
	}
}

func (n *Normalizer) normalizeJSON(data []byte) (Date, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Date{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err == nil {
		var extra any
		if err := dec.Decode(&extra); errors.Is(err, io.EOF) {
			return n.Normalize(value)
		}
	}
	// Unquoted text columns such as 2025-12-30 or 30/12/2025 are not a single JSON value.
	return n.normalizeString(string(trimmed))
}

// normalizeTimestampMap handles exported Firestore timestamps such as {"_seconds": 1767052800, "_nanoseconds": 0}.
func (n *Normalizer) normalizeTimestampMap(m map[string]any) (Date, error) {
	for _, key := range []string{"seconds", "_seconds"} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var secs int64
		switch v := raw.(type) {
		case json.Number:
			parsed, err := v.Int64()
			if err != nil {
				return Date{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
			}
			secs = parsed
		case float64:
			secs = int64(v)
		case int64:
			secs = v
		case int:
			secs = int64(v)
		case string:
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Date{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
			}
			secs = parsed
		default:
			return Date{}, fmt.Errorf("%w: timestamp seconds of type %T", ErrInvalidDate, raw)
		}
		return Of(time.Unix(secs, 0).In(n.location())), nil
	}
	return Date{}, fmt.Errorf("%w: object without seconds", ErrInvalidDate)
}

func (n *Normalizer) normalizeNumber(s string) (Date, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n.fromEpoch(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return n.fromFloatEpoch(f)
}

func (n *Normalizer) normalizeString(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty string", ErrInvalidDate)
	}

	if d, ok := parseLayouts(s, isoLayouts); ok {
		return d, nil
	}
	if isDigits(s) {
		return n.normalizeNumber(s)
	}
	if d, ok := parseLayouts(s, rfc2822Layouts); ok {
		return d, nil
	}
	if m := slashPattern.FindStringSubmatch(s); m != nil {
		return n.parseSlash(s, m)
	}
	if d, ok := parseLayouts(s, monthNameLayouts); ok {
		return d, nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

func (n *Normalizer) parseSlash(s string, m []string) (Date, error) {
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	var day, month int
	switch {
	case first > 12 && second <= 12:
		day, month = first, second
	case second > 12 && first <= 12:
		month, day = first, second
	default:
		if first != second {
			n.warnf("dates: ambiguous slash date %q read as %s", s, n.slashOrder())
		}
		if n.slashOrder() == MonthFirst {
			month, day = first, second
		} else {
			day, month = first, second
		}
	}

	if month < 1 || month > 12 || day < 1 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d := New(year, time.Month(month), day)
	if d.Day != day || int(d.Month) != month {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

func (n *Normalizer) fromEpoch(v int64) Date {
	var t time.Time
	if v >= millisThreshold || v <= -millisThreshold {
		t = time.UnixMilli(v)
	} else {
		t = time.Unix(v, 0)
	}
	return Of(t.In(n.location()))
}

func (n *Normalizer) fromFloatEpoch(v float64) (Date, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v >= math.MaxInt64 || v < math.MinInt64 {
		return Date{}, fmt.Errorf("%w: epoch out of range", ErrInvalidDate)
	}
	return n.fromEpoch(int64(math.Floor(v))), nil
}

func (n *Normalizer) slashOrder() SlashOrder {
	if n.SlashOrder == MonthFirst {
		return MonthFirst
	}
	return DayFirst
}

func (n *Normalizer) location() *time.Location {
	if n.EpochLocation == nil {
		return time.UTC
	}
	return n.EpochLocation
}

func (n *Normalizer) warnf(format string, args ...any) {
	if n.Warnf != nil {
		n.Warnf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func parseLayouts(s string, layouts []string) (Date, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Of(t), true
		}
	}
	return Date{}, false
}

func isDigits(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
