package cache

import (
	"testing"

	"github.com/inventohq/festival-system/models"
)

func TestOccupancyZeroCapacityIsZeroPercent(t *testing.T) {
	events := []models.Event{
		{ID: "ev1", Name: "Empty", Slots: models.SlotPool{Total: 0, Filled: 7}},
		{ID: "ev2", Name: "Half", Slots: models.SlotPool{Total: 10, Filled: 5}},
	}

	occ := Occupancy(events)
	if len(occ) != 2 {
		t.Fatalf("got %d entries", len(occ))
	}
	if occ[0].FillPercent != 0 {
		t.Errorf("zero-capacity event fill = %v, want 0", occ[0].FillPercent)
	}
	if occ[1].FillPercent != 50 {
		t.Errorf("fill = %v, want 50", occ[1].FillPercent)
	}
	if occ[0].MalePercent != nil || occ[0].FemalePercent != nil {
		t.Error("gender percents must be absent without gender slots")
	}
}

func TestOccupancyGenderSlots(t *testing.T) {
	events := []models.Event{
		{
			ID:    "ev1",
			Slots: models.SlotPool{Total: 30, Filled: 15},
			GenderSlots: &models.GenderSlots{
				Male:   models.SlotPool{Total: 20, Filled: 10},
				Female: models.SlotPool{Total: 10, Filled: 5},
			},
		},
	}

	occ := Occupancy(events)
	if occ[0].MalePercent == nil || *occ[0].MalePercent != 50 {
		t.Errorf("male percent = %v, want 50", occ[0].MalePercent)
	}
	if occ[0].FemalePercent == nil || *occ[0].FemalePercent != 50 {
		t.Errorf("female percent = %v, want 50", occ[0].FemalePercent)
	}
}

func TestTeamStatsExcludesRegistrationTeam(t *testing.T) {
	events := []models.Event{
		{ID: "ev1", Club: "Robotics"},
		{ID: "ev2", Club: "Robotics"},
		{ID: "ev3", Club: models.RegistrationTeam},
		{ID: "ev4", Club: "Drama"},
	}
	participants := []models.Participant{
		{InventoID: "p1", EventID: "ev1", AmountPaid: 100},
		{InventoID: "p2", EventID: "ev2", AmountPaid: 200},
		{InventoID: "p3", EventID: "ev3", AmountPaid: 999}, // служебное событие
		{InventoID: "p4", EventID: "ev4", AmountPaid: 50},
		{InventoID: "p5", EventID: "unknown", AmountPaid: 10},
	}

	stats := TeamStats(events, participants)
	if len(stats) != 2 {
		t.Fatalf("got %d teams, want 2 (Registration excluded)", len(stats))
	}

	robotics := stats[0]
	if robotics.Team != "Robotics" || robotics.Events != 2 || robotics.Registrations != 2 || robotics.Revenue != 300 {
		t.Errorf("robotics stat = %+v", robotics)
	}
	drama := stats[1]
	if drama.Team != "Drama" || drama.Registrations != 1 || drama.Revenue != 50 {
		t.Errorf("drama stat = %+v", drama)
	}
}

func TestCollegeStats(t *testing.T) {
	participants := []models.Participant{
		{InventoID: "p1", College: "NIT", Attended: true},
		{InventoID: "p2", College: "NIT", Attended: false},
		{InventoID: "p3", College: "", Attended: true},
	}

	stats := CollegeStats(participants)
	if len(stats) != 2 {
		t.Fatalf("got %d colleges", len(stats))
	}
	if stats[0].College != "NIT" || stats[0].Registrations != 2 || stats[0].Attendance != 1 {
		t.Errorf("NIT stat = %+v", stats[0])
	}
	if stats[1].College != "Unknown" || stats[1].Registrations != 1 {
		t.Errorf("blank college stat = %+v", stats[1])
	}
}

func TestTotalRevenue(t *testing.T) {
	participants := []models.Participant{
		{AmountPaid: 100},
		{AmountPaid: 0},
		{AmountPaid: 250},
	}
	if got := TotalRevenue(participants); got != 350 {
		t.Errorf("revenue = %d, want 350", got)
	}
	if got := TotalRevenue(nil); got != 0 {
		t.Errorf("empty revenue = %d, want 0", got)
	}
}
