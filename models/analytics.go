package models

import "time"

// AnalyticsOverview — агрегаты GET /api/events/analytics/overview.
type AnalyticsOverview struct {
	TotalEvents        int `json:"total_events"`
	TotalRegistrations int `json:"total_registrations"`
	ConfirmedCount     int `json:"confirmed_count"`
	PendingCount       int `json:"pending_count"`
	WaitlistCount      int `json:"waitlist_count"`
	TotalRevenue       int `json:"total_revenue"`
	AttendanceCount    int `json:"attendance_count"`
}

// EventBreakdown — строка детальной аналитики по одному событию.
type EventBreakdown struct {
	EventID       string `json:"event_id"`
	EventName     string `json:"event_name"`
	Registrations int    `json:"registrations"`
	Confirmed     int    `json:"confirmed"`
	Revenue       int    `json:"revenue"`
	SlotsTotal    int    `json:"slots_total"`
	SlotsFilled   int    `json:"slots_filled"`
}

// AnalyticsDetailed — ответ GET /api/events/analytics/detailed.
type AnalyticsDetailed struct {
	Events      []EventBreakdown `json:"events"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// ActivityEntry — запись журнала действий back-office.
type ActivityEntry struct {
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target,omitempty"`
	At     time.Time `json:"at"`
}
