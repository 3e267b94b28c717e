// Package model contains domain models passed between layers.
package model

import "time"

// CompetitionResult is a scored entry produced by the results subsystem.
// It is read-only to the award engine.
type CompetitionResult struct {
	ID           string
	CompetitorID string   // empty for guest entries
	MemberID     string   // membership number printed on the badge record
	Class        string   // free-text competition class, e.g. "Modified 3"
	Format       string   // discipline marker, e.g. "SPL" or "SQL"
	Score        *float64 // nil when the result was never scored
	EventID      string
	SeasonID     string
}

// Scored reports whether the result can take part in award evaluation.
func (r CompetitionResult) Scored() bool {
	return r.CompetitorID != "" && r.Score != nil
}

// Recipient is the persisted award linking a competitor to one tier of a group.
type Recipient struct {
	ID               string
	AchievementID    string
	CompetitorID     string
	Group            string
	MemberID         string
	AchievedValue    float64
	AchievedAt       time.Time
	ResultID         string
	EventID          string
	SeasonID         string
	ImageURL         string
	ImageGeneratedAt time.Time
}

// Achievement is a recipient joined with the metadata of the tier it holds.
type Achievement struct {
	Recipient
	Name        string
	Description string
	TemplateKey string
	Threshold   float64
	RenderValue *float64
	Format      string
}
