// Package report defines the aggregated statistics computed over the ticket
// collection and renders them into chart and PDF artifacts.
package report

import "time"

// Bucket is one labeled count in a distribution.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TrendPoint is one calendar day in the created-vs-resolved trend line.
type TrendPoint struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Created int    `json:"created"`
	Closed  int    `json:"closed"`
}

// ResolutionTime is the mean time from creation to resolution.
type ResolutionTime struct {
	Hours      float64 `json:"hours"`
	Days       float64 `json:"days"`
	SampleSize int     `json:"sampleSize"`
}

// AssigneePerformance is one assignee's ranked scorecard.
type AssigneePerformance struct {
	AssigneeID         string  `json:"assigneeId"`
	Name               string  `json:"name"`
	Total              int     `json:"total"`
	Resolved           int     `json:"resolved"`
	Closed             int     `json:"closed"`
	InProgress         int     `json:"inProgress"`
	Open               int     `json:"open"`
	ResolutionRate     float64 `json:"resolutionRate"`
	AvgResolutionHours float64 `json:"avgResolutionHours"`
}

// RecentTicket is a row of the latest-tickets table.
type RecentTicket struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	AssignedUnit string    `json:"assignedUnit"`
	OwnerName    string    `json:"ownerName"`
	AssigneeName string    `json:"assigneeName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Data is the full aggregate snapshot a report is rendered from.
type Data struct {
	GeneratedAt          time.Time             `json:"generatedAt"`
	TotalTickets         int                   `json:"totalTickets"`
	StatusDistribution   []Bucket              `json:"statusDistribution"`
	TypeDistribution     []Bucket              `json:"typeDistribution"`
	PriorityDistribution []Bucket              `json:"priorityDistribution"`
	UnitDistribution     []Bucket              `json:"unitDistribution"`
	Trends               []TrendPoint          `json:"trends"`
	AvgResolution        ResolutionTime        `json:"avgResolution"`
	Performance          []AssigneePerformance `json:"performance"`
	Recent               []RecentTicket        `json:"recent"`
}
