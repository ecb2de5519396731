package models

import "time"

// SnapshotSchemaVersion — текущая версия структуры снапшота.
// Снапшот с другой версией (в том числе демо-заглушки с версией 0)
// отбрасывается при загрузке вместо использования.
const SnapshotSchemaVersion = 3

// Snapshot — локальное зеркало коллекций бэкенда. Это кэш, а не
// источник истины: каждая коллекция целиком перезаписывается при
// рефреше и никогда не патчится по месту.
type Snapshot struct {
	SchemaVersion int `json:"schema_version"`

	Events       []Event         `json:"events"`
	Participants []Participant   `json:"participants"`
	Admins       []AdminAccount  `json:"admins"`
	Settings     *GlobalSettings `json:"settings,omitempty"`
	Activity     []ActivityEntry `json:"activity,omitempty"`

	Overview *AnalyticsOverview `json:"overview,omitempty"`
	Detailed *AnalyticsDetailed `json:"detailed,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewSnapshot returns an empty snapshot at the current schema version.
func NewSnapshot() *Snapshot {
	return &Snapshot{SchemaVersion: SnapshotSchemaVersion}
}

// Clone returns a deep copy of the snapshot. Collection slices are
// copied so callers can read without holding the cache lock.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Events = append([]Event(nil), s.Events...)
	out.Participants = make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		p.Members = append([]TeamMember(nil), p.Members...)
		out.Participants[i] = p
	}
	out.Admins = append([]AdminAccount(nil), s.Admins...)
	out.Activity = append([]ActivityEntry(nil), s.Activity...)
	if s.Settings != nil {
		settings := *s.Settings
		out.Settings = &settings
	}
	if s.Overview != nil {
		overview := *s.Overview
		out.Overview = &overview
	}
	if s.Detailed != nil {
		detailed := *s.Detailed
		detailed.Events = append([]EventBreakdown(nil), s.Detailed.Events...)
		out.Detailed = &detailed
	}
	return &out
}
