package cache

import "github.com/inventohq/festival-system/models"

// Производные представления — чистые функции от снапшота. Они нигде
// не персистятся и пересчитываются на каждый запрос.

// EventOccupancy — заполненность одного события.
type EventOccupancy struct {
	EventID     string  `json:"event_id"`
	EventName   string  `json:"event_name"`
	Club        string  `json:"club"`
	SlotsTotal  int     `json:"slots_total"`
	SlotsFilled int     `json:"slots_filled"`
	FillPercent float64 `json:"fill_percent"`

	// Для двух событий с гендерными квотами.
	MalePercent   *float64 `json:"male_percent,omitempty"`
	FemalePercent *float64 `json:"female_percent,omitempty"`
}

// Occupancy считает заполненность по всем событиям.
func Occupancy(events []models.Event) []EventOccupancy {
	out := make([]EventOccupancy, 0, len(events))
	for _, e := range events {
		occ := EventOccupancy{
			EventID:     e.ID,
			EventName:   e.Name,
			Club:        e.Club,
			SlotsTotal:  e.Slots.Total,
			SlotsFilled: e.Slots.Filled,
			FillPercent: e.Slots.FillPercent(),
		}
		if e.GenderSlots != nil {
			male := e.GenderSlots.Male.FillPercent()
			female := e.GenderSlots.Female.FillPercent()
			occ.MalePercent = &male
			occ.FemalePercent = &female
		}
		out = append(out, occ)
	}
	return out
}

// TeamStat — статистика по команде-организатору.
type TeamStat struct {
	Team          string `json:"team"`
	Events        int    `json:"events"`
	Registrations int    `json:"registrations"`
	Revenue       int    `json:"revenue"`
}

// TeamStats группирует события и заявки по владеющей команде.
// Псевдокоманда "Registration" — служебная и в статистику не входит.
func TeamStats(events []models.Event, participants []models.Participant) []TeamStat {
	byClub := make(map[string]*TeamStat)
	order := make([]string, 0)

	clubOf := make(map[string]string, len(events))
	for _, e := range events {
		if e.Club == models.RegistrationTeam {
			continue
		}
		clubOf[e.ID] = e.Club
		stat, ok := byClub[e.Club]
		if !ok {
			stat = &TeamStat{Team: e.Club}
			byClub[e.Club] = stat
			order = append(order, e.Club)
		}
		stat.Events++
	}

	for _, p := range participants {
		club, ok := clubOf[p.EventID]
		if !ok {
			continue // событие псевдокоманды или неизвестное
		}
		stat := byClub[club]
		stat.Registrations++
		stat.Revenue += p.AmountPaid
	}

	out := make([]TeamStat, 0, len(order))
	for _, club := range order {
		out = append(out, *byClub[club])
	}
	return out
}

// CollegeStat — группировка заявок по колледжу участника.
type CollegeStat struct {
	College       string `json:"college"`
	Registrations int    `json:"registrations"`
	Attendance    int    `json:"attendance"`
}

func CollegeStats(participants []models.Participant) []CollegeStat {
	byCollege := make(map[string]*CollegeStat)
	order := make([]string, 0)

	for _, p := range participants {
		college := p.College
		if college == "" {
			college = "Unknown"
		}
		stat, ok := byCollege[college]
		if !ok {
			stat = &CollegeStat{College: college}
			byCollege[college] = stat
			order = append(order, college)
		}
		stat.Registrations++
		if p.Attended {
			stat.Attendance++
		}
	}

	out := make([]CollegeStat, 0, len(order))
	for _, college := range order {
		out = append(out, *byCollege[college])
	}
	return out
}

// TotalRevenue суммирует оплаченные суммы по всем заявкам.
func TotalRevenue(participants []models.Participant) int {
	total := 0
	for _, p := range participants {
		total += p.AmountPaid
	}
	return total
}
