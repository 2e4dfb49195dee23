package mcp

import (
	"context"
	"encoding/json"

	"github.com/johnrirwin/rightswatch/internal/aggregator"
	"github.com/johnrirwin/rightswatch/internal/health"
	"github.com/johnrirwin/rightswatch/internal/logging"
	"github.com/johnrirwin/rightswatch/internal/models"
)

type Handler struct {
	agg     *aggregator.Aggregator
	checker *health.Checker
	logger  *logging.Logger
}

func NewHandler(agg *aggregator.Aggregator, checker *health.Checker, logger *logging.Logger) *Handler {
	return &Handler{
		agg:     agg,
		checker: checker,
		logger:  logger,
	}
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type GetReportParams struct {
	Bucket string `json:"bucket"`
	Limit  int    `json:"limit"`
}

type SourceParams struct {
	SourceID string `json:"source_id"`
}

type HealthParams struct {
	FeedID string `json:"feed_id"`
	Cached bool   `json:"cached"`
}

func (h *Handler) GetTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "get_rights_report",
			Description: "Fetch the configured news and human-rights feeds and return the merged report.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"bucket": {
						"type": "string",
						"enum": ["all", "news", "threats"],
						"description": "Which item list to return (default: all)"
					},
					"limit": {
						"type": "integer",
						"description": "Maximum items per list (default: no limit)"
					}
				}
			}`),
		},
		{
			Name:        "list_feed_sources",
			Description: "List every configured feed source with its category, region and citation records.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {}
			}`),
		},
		{
			Name:        "get_source_items",
			Description: "Fetch the latest items of a single configured source.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"source_id": {
						"type": "string",
						"description": "Source id as listed by list_feed_sources"
					}
				},
				"required": ["source_id"]
			}`),
		},
		{
			Name:        "check_feed_health",
			Description: "Ping feed URLs and report latency, status and recorded failures.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"feed_id": {
						"type": "string",
						"description": "Check only this feed (default: all feeds)"
					},
					"cached": {
						"type": "boolean",
						"description": "Return the last recorded result instead of checking again (default: false)"
					}
				}
			}`),
		},
	}
}

func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "get_rights_report":
		return h.handleGetReport(ctx, arguments)
	case "list_feed_sources":
		return h.handleListSources(ctx)
	case "get_source_items":
		return h.handleGetSourceItems(ctx, arguments)
	case "check_feed_health":
		return h.handleCheckHealth(ctx, arguments)
	default:
		return nil, &ToolError{Message: "Unknown tool: " + name}
	}
}

func (h *Handler) handleGetReport(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params GetReportParams
	if err := decodeArgs(arguments, &params); err != nil {
		return nil, err
	}

	report := h.agg.AggregateFeeds(ctx)

	switch params.Bucket {
	case "", "all":
	case "news":
		report.Threats = []models.FeedItem{}
	case "threats":
		report.News = []models.FeedItem{}
	default:
		return nil, &ToolError{Message: "Invalid bucket: " + params.Bucket}
	}

	if params.Limit > 0 {
		report.News = limitItems(report.News, params.Limit)
		report.Threats = limitItems(report.Threats, params.Limit)
	}

	return report, nil
}

func (h *Handler) handleListSources(ctx context.Context) (interface{}, error) {
	sources := h.agg.GetSources()
	return map[string]interface{}{
		"sources": sources,
		"count":   len(sources),
	}, nil
}

func (h *Handler) handleGetSourceItems(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params SourceParams
	if err := decodeArgs(arguments, &params); err != nil {
		return nil, err
	}
	if params.SourceID == "" {
		return nil, &ToolError{Message: "source_id is required"}
	}

	items, ok := h.agg.SourceItems(ctx, params.SourceID)
	if !ok {
		return nil, &ToolError{Message: "Unknown source: " + params.SourceID}
	}

	return map[string]interface{}{
		"source": params.SourceID,
		"items":  items,
		"count":  len(items),
	}, nil
}

func (h *Handler) handleCheckHealth(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params HealthParams
	if err := decodeArgs(arguments, &params); err != nil {
		return nil, err
	}

	sources := h.agg.GetSources()
	if params.FeedID != "" {
		var match []models.FeedSource
		for _, src := range sources {
			if src.ID == params.FeedID {
				match = append(match, src)
			}
		}
		if len(match) == 0 {
			return nil, &ToolError{Message: "Unknown feed: " + params.FeedID}
		}
		sources = match
	}

	var results []models.FeedHealth
	if params.Cached {
		results = h.checker.Latest(ctx, sources)
	} else {
		results = h.checker.CheckAll(ctx, sources)
	}

	return map[string]interface{}{
		"status": health.Summarize(results),
		"feeds":  results,
		"count":  len(results),
		"cached": params.Cached,
	}, nil
}

func decodeArgs(arguments json.RawMessage, dst interface{}) error {
	if len(arguments) == 0 || string(arguments) == "null" {
		return nil
	}
	if err := json.Unmarshal(arguments, dst); err != nil {
		return &ToolError{Message: "Invalid arguments: " + err.Error()}
	}
	return nil
}

func limitItems(items []models.FeedItem, n int) []models.FeedItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}

type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}
