package models

import "time"

type Category string

const (
	CategoryNews         Category = "news"
	CategoryHumanRights  Category = "human_rights"
	CategoryResearch     Category = "research"
	CategorySurveillance Category = "surveillance"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryNews, CategoryHumanRights, CategoryResearch, CategorySurveillance:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// VerificationVerified only means the item was parsed from a configured source.
// No fact-checking signal backs it.
const VerificationVerified = "verified"

type CitationSource struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Type         string `json:"type"`
	Organization string `json:"organization"`
}

// FeedSource describes one external feed to poll.
type FeedSource struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	URL             string           `json:"url"`
	Category        Category         `json:"category"`
	Region          string           `json:"region"`
	UpdateFrequency string           `json:"updateFrequency"`
	Credibility     string           `json:"credibility"`
	Note            string           `json:"note,omitempty"`
	CitationSources []CitationSource `json:"citationSources"`
	Enabled         bool             `json:"enabled"`
}

type FeedItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
	Region       string    `json:"region,omitempty"`
	Severity     Severity  `json:"severity"`
	Link         string    `json:"link"`
	Verification string    `json:"verification"`
}

type ReportStatus string

const (
	StatusOperational      ReportStatus = "operational"
	StatusFeedsUnavailable ReportStatus = "feeds_unavailable"
	StatusError            ReportStatus = "error"
)

type FeedsLoaded struct {
	News      int `json:"news"`
	Threats   int `json:"threats"`
	Campaigns int `json:"campaigns"`
}

// AggregateReport is the merged output of one aggregation run.
type AggregateReport struct {
	News        []FeedItem   `json:"news"`
	Threats     []FeedItem   `json:"threats"`
	Campaigns   []FeedItem   `json:"campaigns"`
	LastUpdated time.Time    `json:"lastUpdated"`
	Status      ReportStatus `json:"status"`
	FeedsLoaded FeedsLoaded  `json:"feedsLoaded"`
	Error       string       `json:"error,omitempty"`
}

type ReportStats struct {
	TotalItems      int `json:"totalItems"`
	NewsCount       int `json:"newsCount"`
	ThreatCount     int `json:"threatCount"`
	CampaignCount   int `json:"campaignCount"`
	DistinctSources int `json:"distinctSources"`
}

// Stats computes the counters UI consumers display next to a report.
func (r AggregateReport) Stats() ReportStats {
	seen := make(map[string]bool)
	for _, list := range [][]FeedItem{r.News, r.Threats, r.Campaigns} {
		for _, item := range list {
			if item.Source != "" {
				seen[item.Source] = true
			}
		}
	}

	return ReportStats{
		TotalItems:      len(r.News) + len(r.Threats) + len(r.Campaigns),
		NewsCount:       len(r.News),
		ThreatCount:     len(r.Threats),
		CampaignCount:   len(r.Campaigns),
		DistinctSources: len(seen),
	}
}

type HealthStatus string

const (
	HealthOperational HealthStatus = "operational"
	HealthDegraded    HealthStatus = "degraded"
	HealthDown        HealthStatus = "down"
)

type FeedHealth struct {
	FeedID       string       `json:"feedId"`
	Status       HealthStatus `json:"status"`
	ResponseTime int64        `json:"responseTime"`
	ErrorCount   int64        `json:"errorCount"`
	LastChecked  time.Time    `json:"lastChecked"`
	LastError    string       `json:"lastError,omitempty"`
}
