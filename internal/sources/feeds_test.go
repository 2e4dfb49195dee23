package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/rightswatch/internal/models"
)

func writeFeedsFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeds.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFeedsConfig(t *testing.T) {
	path := writeFeedsFile(t, `{"sources":[
		{"name":"Front Line Defenders","url":"https://www.frontlinedefenders.org/en/rss.xml","category":"human_rights","region":"Global","enabled":true},
		{"id":"dw","name":"DW World","url":"https://rss.dw.com/rdf/rss-en-world","category":"news","region":"Europe","enabled":false}
	]}`)

	cfg, err := LoadFeedsConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 2)

	assert.Equal(t, "front-line-defenders", cfg.Sources[0].ID)
	assert.Equal(t, models.CategoryHumanRights, cfg.Sources[0].Category)
	assert.NotNil(t, cfg.Sources[0].CitationSources)

	enabled := cfg.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "front-line-defenders", enabled[0].ID)

	assert.Equal(t, "dw", cfg.Sources[1].ID)
	assert.Equal(t, "Europe", cfg.Sources[1].Region)
	assert.False(t, cfg.Sources[1].Enabled)
}

func TestLoadFeedsConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"sources":[`},
		{name: "missing name", body: `{"sources":[{"url":"https://a.org/feed","category":"news"}]}`},
		{name: "bad url", body: `{"sources":[{"name":"A","url":"ftp://a.org","category":"news"}]}`},
		{name: "bad category", body: `{"sources":[{"name":"A","url":"https://a.org/feed","category":"opinion"}]}`},
		{name: "duplicate id", body: `{"sources":[{"name":"A","url":"https://a.org/feed","category":"news"},{"name":"a","url":"https://b.org/feed","category":"news"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFeedsConfig(writeFeedsFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadFeedsConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestFindFeedsConfig_Explicit(t *testing.T) {
	path := writeFeedsFile(t, `{"sources":[]}`)
	assert.Equal(t, path, FindFeedsConfig(path))
	assert.Equal(t, "", FindFeedsConfig(filepath.Join(t.TempDir(), "absent.json")))
}

func TestGetDefaultFeedsConfig(t *testing.T) {
	cfg := GetDefaultFeedsConfig()
	require.NoError(t, cfg.Validate())

	var news, rights int
	for _, src := range cfg.Enabled() {
		switch src.Category {
		case models.CategoryNews:
			news++
		case models.CategoryHumanRights:
			rights++
		}
		assert.NotEmpty(t, src.CitationSources, "source %s has no citation", src.ID)
	}
	assert.Greater(t, news, 0)
	assert.Greater(t, rights, 0)
}
