package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TeamSize описывает допустимый размер команды для события.
// Бэкенд исторически отдаёт его строкой ("1", "3-5"), поэтому
// парсим один раз на границе, а дальше работаем со структурой.
type TeamSize struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Solo reports whether the event is an individual (single-member) event.
func (ts TeamSize) Solo() bool {
	return ts.Max <= 1
}

// Contains reports whether n members (leader included) fit the band.
func (ts TeamSize) Contains(n int) bool {
	return n >= ts.Min && n <= ts.Max
}

func (ts TeamSize) String() string {
	if ts.Min == ts.Max {
		return strconv.Itoa(ts.Min)
	}
	return fmt.Sprintf("%d-%d", ts.Min, ts.Max)
}

// ParseTeamSize принимает "1", "5" или "3-5".
func ParseTeamSize(s string) (TeamSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TeamSize{Min: 1, Max: 1}, nil
	}
	if min, max, ok := strings.Cut(s, "-"); ok {
		lo, err := strconv.Atoi(strings.TrimSpace(min))
		if err != nil {
			return TeamSize{}, fmt.Errorf("invalid team size %q: %w", s, err)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(max))
		if err != nil {
			return TeamSize{}, fmt.Errorf("invalid team size %q: %w", s, err)
		}
		if lo <= 0 || hi < lo {
			return TeamSize{}, fmt.Errorf("invalid team size band %q", s)
		}
		return TeamSize{Min: lo, Max: hi}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return TeamSize{}, fmt.Errorf("invalid team size %q: %w", s, err)
	}
	if n <= 0 {
		return TeamSize{}, fmt.Errorf("invalid team size %q", s)
	}
	return TeamSize{Min: n, Max: n}, nil
}

// UnmarshalJSON accepts both the legacy string form ("3-5") and the
// structured {"min":3,"max":5} form.
func (ts *TeamSize) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseTeamSize(s)
		if err != nil {
			return err
		}
		*ts = parsed
		return nil
	}
	type plain TeamSize
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*ts = TeamSize(p)
	return nil
}

// SlotPool — пара "всего/занято" для квоты мест.
type SlotPool struct {
	Total  int `json:"total"`
	Filled int `json:"filled"`
}

// FillPercent returns the fill rate clamped to [0,100].
// A zero-capacity pool is 0%, never NaN.
func (p SlotPool) FillPercent() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Filled) / float64(p.Total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// GenderSlots splits an event's capacity into male/female sub-pools.
// Only the two designated events carry this override.
type GenderSlots struct {
	Male   SlotPool `json:"male"`
	Female SlotPool `json:"female"`
}

// Event представляет событие фестиваля, как его отдаёт бэкенд.
type Event struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Club         string       `json:"club"`
	Fee          int          `json:"fee"`
	PerHead      bool         `json:"per_head"`
	Slots        SlotPool     `json:"slots"`
	GenderSlots  *GenderSlots `json:"gender_slots,omitempty"`
	Open         bool         `json:"open"`
	OfficialOnly bool         `json:"official_only"`
	TeamSize     TeamSize     `json:"team_size"`

	Rounds   []string `json:"rounds,omitempty"`
	Rules    *string  `json:"rules,omitempty"`
	Contacts []string `json:"contacts,omitempty"`

	PosterKey *string `json:"-"`
	PosterURL *string `json:"poster_url,omitempty"`
}

// TotalFee computes what a squad of the given size owes.
func (e *Event) TotalFee(members int) int {
	if e.Fee <= 0 {
		return 0
	}
	if e.PerHead {
		return e.Fee * members
	}
	return e.Fee
}
