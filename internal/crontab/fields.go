package crontab

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldSpec describes one of the five time fields.
type fieldSpec struct {
	name  string
	min   int
	max   int
	names map[string]int
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var dowNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// timeFields are the five schedule fields in line order.
var timeFields = [5]fieldSpec{
	{name: "minute", min: 0, max: 59},
	{name: "hour", min: 0, max: 23},
	{name: "day-of-month", min: 1, max: 31},
	{name: "month", min: 1, max: 12, names: monthNames},
	// 0 and 7 are both Sunday.
	{name: "day-of-week", min: 0, max: 7, names: dowNames},
}

// parse checks a field and returns the set of values it selects.
// The grammar is a comma list of items; an item is "*", a value, or a range
// "a-b", optionally followed by "/step". "a/step" means a through max.
func (f fieldSpec) parse(text string) ([]bool, error) {
	if text == "" {
		return nil, fmt.Errorf("empty field")
	}
	set := make([]bool, f.max+1)
	for _, item := range strings.Split(text, ",") {
		if err := f.parseItem(item, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (f fieldSpec) parseItem(item string, set []bool) error {
	if item == "" {
		return fmt.Errorf("empty list element")
	}

	base, stepText, hasStep := strings.Cut(item, "/")
	step := 1
	if hasStep {
		n, err := parseNumber(stepText)
		if err != nil {
			return fmt.Errorf("invalid step %q", stepText)
		}
		if n == 0 {
			return fmt.Errorf("step must be greater than zero")
		}
		if n > f.max {
			return fmt.Errorf("step %d out of range 1-%d", n, f.max)
		}
		step = n
	}

	var start, end int
	switch {
	case base == "*":
		start, end = f.min, f.max
	case strings.Contains(base, "-"):
		lo, hi, _ := strings.Cut(base, "-")
		var err error
		if start, err = f.value(lo); err != nil {
			return err
		}
		if end, err = f.value(hi); err != nil {
			return err
		}
		if start > end {
			return fmt.Errorf("range %s has start greater than end", base)
		}
	default:
		v, err := f.value(base)
		if err != nil {
			return err
		}
		start, end = v, v
		if hasStep {
			end = f.max
		}
	}

	for v := start; v <= end; v += step {
		set[v] = true
		if end-v < step {
			break
		}
	}
	return nil
}

// value parses a single number or name and checks it against the domain.
func (f fieldSpec) value(text string) (int, error) {
	if f.names != nil {
		if v, ok := f.names[strings.ToLower(text)]; ok {
			return v, nil
		}
	}
	n, err := parseNumber(text)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", text)
	}
	if n < f.min || n > f.max {
		return 0, fmt.Errorf("value %d out of range %d-%d", n, f.min, f.max)
	}
	return n, nil
}

// parseNumber accepts plain decimal digits only, no sign.
func parseNumber(text string) (int, error) {
	if text == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(text)
}
