package store

import (
	"encoding/json"
	"time"
)

type Actor struct {
	ID          string
	DisplayName string
	Email       string
	Role        string
	CreatedAt   time.Time
}

type GameSystem struct {
	ID                 string
	Name               string
	Status             string
	MaintenanceMessage string
	SortOrder          int
	Schemas            map[string]TypeSchema
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TypeSchema describes the structured fields a document type carries for a
// given game system. Parsed once from the schemas column, never interpreted
// per request.
type TypeSchema struct {
	Fields []SchemaField `json:"fields"`
}

type SchemaField struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type TypeAvailability struct {
	DocumentType string
	GameSystemID string
	Active       bool
	SortOrder    int
	Config       TypeConfig
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TypeConfig struct {
	TemplateID     string   `json:"templateId"`
	RequiredFields []string `json:"requiredFields,omitempty"`
}

type Document struct {
	ID               string
	Type             string
	Title            string
	GameSystemID     string
	OwnerID          *string
	Payload          json.RawMessage
	Status           string
	Visibility       string
	AdminOnly        bool
	ModerationStatus string
	Featured         bool
	FeaturedAt       *time.Time
	FeaturedBy       string
	ModeratedAt      *time.Time
	ModeratedBy      string
	RejectionReason  string
	ClaimKeyHash     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type DocumentFilters struct {
	GameSystemID string
	DocumentType string
	OwnerID      string
	Limit        int
}

type Vote struct {
	ID         string
	DocumentID string
	VoterID    string
	Quality    int
	Utility    int
	Fidelity   int
	Comment    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type VoteAggregate struct {
	DocumentID   string
	Count        int
	MeanQuality  float64
	MeanUtility  float64
	MeanFidelity float64
	MeanOverall  float64
}

type RankedDocument struct {
	Document  Document
	Aggregate VoteAggregate
}

type ModerationLogEntry struct {
	ID           int64
	DocumentID   string
	ActorID      string
	ActorName    string
	Action       string
	StatusBefore string
	StatusAfter  string
	Reason       string
	CreatedAt    time.Time
}

type ActionStat struct {
	Action string
	Count  int
}

type ModeratorStat struct {
	ActorID   string
	ActorName string
	Count     int
}

type SummaryCounts struct {
	Documents int
	Pending   int
	Flagged   int
	Featured  int
}
