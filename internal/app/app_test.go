package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/vitrine/internal/config"
	"github.com/five82/vitrine/internal/listing"
	"github.com/five82/vitrine/internal/prefs"
	"github.com/five82/vitrine/internal/query"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvLogLevel, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body += "\nlog_file = \"" + filepath.Join(dir, "vitrine.log") + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSetup_DemoBackendServesSync(t *testing.T) {
	opts := Options{
		ConfigPath:   writeConfig(t, `page_size = 10`),
		PrefsPath:    filepath.Join(t.TempDir(), "prefs.toml"),
		LogLevel:     "debug",
		Demo:         true,
		DemoProducts: 25,
	}
	c, err := setup(opts)
	require.NoError(t, err)
	t.Cleanup(c.close)

	require.NotNil(t, c.demo)
	assert.Equal(t, c.cfg.APIURL, c.client.BaseURL())
	assert.Equal(t, 10, c.query.PageSize())

	snap, applied := c.sync.Sync(context.Background(), c.query)
	require.True(t, applied)
	require.Equal(t, listing.StatusLoaded, snap.Status, snap.ErrorDetail())
	assert.Len(t, snap.Records, 10)
	assert.EqualValues(t, 25, snap.TotalCount)
	assert.Equal(t, 3, snap.TotalPages())
}

func TestSetup_OptionsOverrideConfig(t *testing.T) {
	opts := Options{
		ConfigPath: writeConfig(t, `api_url = "http://10.0.0.1:9000"`),
		PrefsPath:  filepath.Join(t.TempDir(), "prefs.toml"),
		APIURL:     "http://127.0.0.1:8123",
		PageSize:   7,
	}
	c, err := setup(opts)
	require.NoError(t, err)
	t.Cleanup(c.close)

	assert.Equal(t, "http://127.0.0.1:8123", c.cfg.APIURL)
	assert.Equal(t, 7, c.query.PageSize())
	assert.Nil(t, c.demo)
}

func TestSetup_RejectsInvalidOverride(t *testing.T) {
	_, err := setup(Options{
		ConfigPath: writeConfig(t, ""),
		APIURL:     "ftp://example.com",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_url")
}

func TestSetup_RestoresSavedFilters(t *testing.T) {
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	saved := prefs.Prefs{Theme: "Slate"}.WithQuery(query.New(50).SetFilter(query.KeyTitle, "mesa"))
	require.NoError(t, prefs.Save(prefsPath, saved))

	c, err := setup(Options{ConfigPath: writeConfig(t, ""), PrefsPath: prefsPath})
	require.NoError(t, err)
	t.Cleanup(c.close)

	assert.Equal(t, "Slate", c.prefs.Theme)
	assert.Equal(t, "mesa", c.query.Filter(query.KeyTitle))
	assert.Equal(t, 1, c.query.Page())
}

func TestSetup_VersionReachesUserAgent(t *testing.T) {
	cases := []struct {
		version string
		want    string
	}{
		{"1.2.3", "vitrine/1.2.3"},
		{"", "vitrine/dev"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			var (
				mu     sync.Mutex
				agents []string
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				agents = append(agents, r.Header.Get("User-Agent"))
				mu.Unlock()
				w.Header().Set("Content-Type", "application/json")
				if r.URL.Path == "/products/stats/" {
					_, _ = w.Write([]byte(`{"total_products":1}`))
					return
				}
				_, _ = w.Write([]byte(`[{"id":1,"title":"mesa","url":"https://example.com/1","price":"9.99"}]`))
			}))
			t.Cleanup(server.Close)

			c, err := setup(Options{
				ConfigPath: writeConfig(t, ""),
				PrefsPath:  filepath.Join(t.TempDir(), "prefs.toml"),
				APIURL:     server.URL,
				Version:    tc.version,
			})
			require.NoError(t, err)
			t.Cleanup(c.close)

			snap, applied := c.sync.Sync(context.Background(), c.query)
			require.True(t, applied)
			require.Equal(t, listing.StatusLoaded, snap.Status, snap.ErrorDetail())

			mu.Lock()
			defer mu.Unlock()
			require.Len(t, agents, 2)
			for _, got := range agents {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
