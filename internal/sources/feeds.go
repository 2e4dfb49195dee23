package sources

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnrirwin/rightswatch/internal/models"
)

// FeedsConfig holds the feeds configuration
type FeedsConfig struct {
	Sources []models.FeedSource `json:"sources"`
}

// LoadFeedsConfig loads and validates feed sources from a JSON config file
func LoadFeedsConfig(configPath string) (*FeedsConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds config: %w", err)
	}

	var config FeedsConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse feeds config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feeds config %s: %w", configPath, err)
	}

	return &config, nil
}

// Validate fills in missing ids and rejects duplicate ids, bad URLs and
// unknown categories.
func (c *FeedsConfig) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for i := range c.Sources {
		src := &c.Sources[i]

		if strings.TrimSpace(src.Name) == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if src.ID == "" {
			src.ID = slug(src.Name)
		}
		if seen[src.ID] {
			return fmt.Errorf("source %q: duplicate id", src.ID)
		}
		seen[src.ID] = true

		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("source %q: invalid url %q", src.ID, src.URL)
		}
		if !src.Category.Valid() {
			return fmt.Errorf("source %q: unknown category %q", src.ID, src.Category)
		}
		if src.CitationSources == nil {
			src.CitationSources = []models.CitationSource{}
		}
	}
	return nil
}

// FindFeedsConfig returns explicitPath when set, otherwise the first
// feeds.json found in the usual locations, or "".
func FindFeedsConfig(explicitPath string) string {
	locations := []string{
		"feeds.json",
		"../feeds.json",
		"/app/feeds.json",
		"config/feeds.json",
	}

	if explicitPath != "" {
		locations = []string{explicitPath}
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			absPath, _ := filepath.Abs(loc)
			return absPath
		}
	}

	return ""
}

// Enabled returns the enabled sources in configuration order.
func (c *FeedsConfig) Enabled() []models.FeedSource {
	enabled := make([]models.FeedSource, 0, len(c.Sources))
	for _, src := range c.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled
}

func slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// GetDefaultFeedsConfig returns the built-in sources used when no config file is found
func GetDefaultFeedsConfig() *FeedsConfig {
	return &FeedsConfig{
		Sources: []models.FeedSource{
			{
				ID: "bbc-world", Name: "BBC News World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml",
				Category: models.CategoryNews, Region: "Global", UpdateFrequency: "hourly", Credibility: "high",
				CitationSources: []models.CitationSource{
					{Title: "BBC News - World", URL: "https://www.bbc.com/news/world", Type: "news", Organization: "BBC"},
				},
				Enabled: true,
			},
			{
				ID: "guardian-world", Name: "The Guardian World", URL: "https://www.theguardian.com/world/rss",
				Category: models.CategoryNews, Region: "Global", UpdateFrequency: "hourly", Credibility: "high",
				CitationSources: []models.CitationSource{
					{Title: "The Guardian - World news", URL: "https://www.theguardian.com/world", Type: "news", Organization: "Guardian News & Media"},
				},
				Enabled: true,
			},
			{
				ID: "aljazeera", Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml",
				Category: models.CategoryNews, Region: "Middle East", UpdateFrequency: "hourly", Credibility: "medium",
				Note: "State-funded broadcaster; cross-check coverage of Gulf politics.",
				CitationSources: []models.CitationSource{
					{Title: "Al Jazeera English", URL: "https://www.aljazeera.com", Type: "news", Organization: "Al Jazeera Media Network"},
				},
				Enabled: true,
			},
			{
				ID: "hrw", Name: "Human Rights Watch", URL: "https://www.hrw.org/rss/news",
				Category: models.CategoryHumanRights, Region: "Global", UpdateFrequency: "daily", Credibility: "high",
				CitationSources: []models.CitationSource{
					{Title: "Human Rights Watch News", URL: "https://www.hrw.org/news", Type: "ngo", Organization: "Human Rights Watch"},
				},
				Enabled: true,
			},
			{
				ID: "amnesty", Name: "Amnesty International", URL: "https://www.amnesty.org/en/feed/",
				Category: models.CategoryHumanRights, Region: "Global", UpdateFrequency: "daily", Credibility: "high",
				CitationSources: []models.CitationSource{
					{Title: "Amnesty International Latest", URL: "https://www.amnesty.org/en/latest/", Type: "ngo", Organization: "Amnesty International"},
				},
				Enabled: true,
			},
			{
				ID: "un-news-human-rights", Name: "UN News Human Rights", URL: "https://news.un.org/feed/subscribe/en/news/topic/human-rights/feed/rss.xml",
				Category: models.CategoryHumanRights, Region: "Global", UpdateFrequency: "daily", Credibility: "high",
				CitationSources: []models.CitationSource{
					{Title: "UN News - Human Rights", URL: "https://news.un.org/en/news/topic/human-rights", Type: "intergovernmental", Organization: "United Nations"},
				},
				Enabled: true,
			},
			{
				ID: "citizen-lab", Name: "Citizen Lab", URL: "https://citizenlab.ca/feed/",
				Category: models.CategorySurveillance, Region: "Global", UpdateFrequency: "weekly", Credibility: "high",
				Note: "Listed for attribution; surveillance research is not merged into reports.",
				CitationSources: []models.CitationSource{
					{Title: "Citizen Lab Research", URL: "https://citizenlab.ca", Type: "research", Organization: "University of Toronto"},
				},
				Enabled: true,
			},
		},
	}
}
