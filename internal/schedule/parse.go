package schedule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bft-labs/pillship/internal/domain"
)

// Report describes what a parse kept and dropped.
type Report struct {
	// Medications is the number of array elements read
	Medications int

	// Slots is the number of time_to_take elements seen
	Slots int

	// DroppedEntries counts slots beyond the entry table capacity
	DroppedEntries int

	// DroppedDoses counts entries that did not fit their group
	DroppedDoses int
}

// Truncated reports whether any input was dropped for capacity reasons.
func (r Report) Truncated() bool {
	return r.DroppedEntries > 0 || r.DroppedDoses > 0
}

// medication admits only the payload fields the model uses.
type medication struct {
	Tube       json.RawMessage `json:"tube"`
	Type       json.RawMessage `json:"type"`
	Amount     json.RawMessage `json:"amount"`
	TimeToTake json.RawMessage `json:"time_to_take"`
}

type slot struct {
	Time   json.RawMessage `json:"time"`
	Dosage json.RawMessage `json:"dosage"`
}

// Parse decodes a schedule payload from r one array element at a time.
// Syntax errors, a root that is not an array, and trailing data yield
// domain.ErrParse. A well-formed payload without any slot yields
// domain.ErrNoScheduleData.
func Parse(r io.Reader) (domain.Schedule, Report, error) {
	var (
		sched  domain.Schedule
		report Report
	)

	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return domain.Schedule{}, report, domain.ErrNoScheduleData
	}
	if err != nil {
		return domain.Schedule{}, report, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return domain.Schedule{}, report, fmt.Errorf("%w: root is not an array", domain.ErrParse)
	}

	for dec.More() {
		// Unknown fields are skipped by the decoder and never retained.
		var med medication
		if err := dec.Decode(&med); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return domain.Schedule{}, report, fmt.Errorf("%w: medication %d: %v", domain.ErrParse, report.Medications, err)
			}
			// A non-object element contributes no entries.
			med = medication{}
		}
		report.Medications++

		tube := text(med.Tube)
		name := text(med.Type)
		amount := integer(med.Amount)

		for _, s := range slots(med.TimeToTake) {
			report.Slots++
			entry := domain.NewEntry(text(s.Time), text(s.Dosage), name, tube, amount)
			if !sched.Entries.Append(entry) {
				report.DroppedEntries++
			}
		}
	}

	if _, err := dec.Token(); err != nil {
		return domain.Schedule{}, report, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.Schedule{}, report, fmt.Errorf("%w: trailing data after array", domain.ErrParse)
	}

	if sched.Entries.Len() == 0 {
		return domain.Schedule{}, report, domain.ErrNoScheduleData
	}

	sched.Groups = Group(&sched.Entries)
	report.DroppedDoses = droppedDoses(&sched.Entries, &sched.Groups)
	return sched, report, nil
}

// Validate checks that data would compile into a non-empty schedule.
func Validate(data []byte) error {
	_, _, err := Parse(bytes.NewReader(data))
	return err
}

func slots(raw json.RawMessage) []slot {
	var elems []json.RawMessage
	if !isArray(raw) || json.Unmarshal(raw, &elems) != nil {
		return nil
	}
	out := make([]slot, len(elems))
	for i, e := range elems {
		if isObject(e) {
			_ = json.Unmarshal(e, &out[i])
		}
	}
	return out
}

func isObject(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '{'
}

func isArray(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '['
}

// text coerces a scalar to its string form. Strings are unquoted, numbers and
// booleans keep their literal text, and anything else becomes "".
func text(raw json.RawMessage) string {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return ""
	}
	switch b[0] {
	case '"':
		var s string
		if json.Unmarshal(b, &s) != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	default:
		return string(b)
	}
}

// integer coerces a number or numeric string to an int, truncating fractions.
// Anything else becomes 0.
func integer(raw json.RawMessage) int {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0
	}
	if b[0] == '"' {
		s := strings.TrimSpace(text(b))
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}
