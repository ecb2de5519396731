package services

import (
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
)

// DashboardStats — сводка для карточек back-office. Всё считается
// детерминированно из снапшота кэша, своего состояния у дашборда нет.
type DashboardStats struct {
	EventsTotal        int     `json:"events_total"`
	OpenEvents         int     `json:"open_events"`
	RegistrationsTotal int     `json:"registrations_total"`
	ConfirmedTotal     int     `json:"confirmed_total"`
	PendingTotal       int     `json:"pending_total"`
	WaitlistTotal      int     `json:"waitlist_total"`
	AttendanceTotal    int     `json:"attendance_total"`
	RevenueTotal       int     `json:"revenue_total"`
	OverallFillPercent float64 `json:"overall_fill_percent"`

	Occupancy []cache.EventOccupancy `json:"occupancy"`
	Teams     []cache.TeamStat       `json:"teams"`
	Colleges  []cache.CollegeStat    `json:"colleges"`
}

type DashboardService interface {
	Stats() DashboardStats
	Occupancy() []cache.EventOccupancy
	Overview() *models.AnalyticsOverview
	Detailed() *models.AnalyticsDetailed
}

type dashboardService struct {
	cache *cache.Store
}

func NewDashboardService(cacheStore *cache.Store) DashboardService {
	return &dashboardService{cache: cacheStore}
}

func (s *dashboardService) Stats() DashboardStats {
	snap := s.cache.Snapshot()

	stats := DashboardStats{
		EventsTotal: len(snap.Events),
		Occupancy:   cache.Occupancy(snap.Events),
		Teams:       cache.TeamStats(snap.Events, snap.Participants),
		Colleges:    cache.CollegeStats(snap.Participants),
	}

	var totalSlots, filledSlots int
	for _, e := range snap.Events {
		if e.Open {
			stats.OpenEvents++
		}
		totalSlots += e.Slots.Total
		filledSlots += e.Slots.Filled
	}
	stats.OverallFillPercent = models.SlotPool{Total: totalSlots, Filled: filledSlots}.FillPercent()

	for _, p := range snap.Participants {
		stats.RegistrationsTotal++
		switch p.Status {
		case models.StatusConfirmed:
			stats.ConfirmedTotal++
		case models.StatusPending:
			stats.PendingTotal++
		case models.StatusWaitlist:
			stats.WaitlistTotal++
		}
		if p.Attended {
			stats.AttendanceTotal++
		}
	}
	stats.RevenueTotal = cache.TotalRevenue(snap.Participants)

	return stats
}

func (s *dashboardService) Occupancy() []cache.EventOccupancy {
	return cache.Occupancy(s.cache.Events())
}

func (s *dashboardService) Overview() *models.AnalyticsOverview {
	return s.cache.Snapshot().Overview
}

func (s *dashboardService) Detailed() *models.AnalyticsDetailed {
	return s.cache.Snapshot().Detailed
}
