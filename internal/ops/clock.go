package ops

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"kline/internal/period"
)

// Clock is a time of day in YAML, written "09:30:00", "09:30" or 93000.
type Clock period.TimeOfDay

func (c *Clock) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: time of day must be a scalar", node.Line)
	}
	v, err := ParseClock(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = Clock(v)
	return nil
}

func (c Clock) TimeOfDay() period.TimeOfDay {
	return period.TimeOfDay(c)
}

// ParseClock accepts HH:MM:SS, HH:MM or the HHMMSS integer form.
func ParseClock(s string) (period.TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time of day")
	}
	var hh, mm, ss int
	var err error
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return 0, fmt.Errorf("time of day %q is not HH:MM[:SS]", s)
		}
		nums := [3]int{}
		for i, p := range parts {
			if nums[i], err = strconv.Atoi(p); err != nil {
				return 0, fmt.Errorf("time of day %q is not HH:MM[:SS]", s)
			}
		}
		hh, mm, ss = nums[0], nums[1], nums[2]
	} else {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("time of day %q is not HHMMSS", s)
		}
		hh, mm, ss = n/10000, n/100%100, n%100
	}
	t := period.TimeOfDay(hh*10000 + mm*100 + ss)
	if hh < 0 || mm < 0 || ss < 0 || !t.Valid() {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}
