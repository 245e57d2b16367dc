package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSitemap(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://www.valleyair.org/</loc></url>
  <url><loc> https://www.valleyair.org/grants </loc></url>
  <url><loc></loc></url>
</urlset>`)

	urls, err := ParseSitemap(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.valleyair.org/", "https://www.valleyair.org/grants"}, urls)
}

func TestParseSitemapInvalidXML(t *testing.T) {
	_, err := ParseSitemap([]byte("not xml at all <"))
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Grants & Incentives | Valley Air", "grants__incentives__valley_air"},
		{"  Air Quality  ", "air_quality"},
		{"///", ""},
		{strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.input), "input=%q", tt.input)
	}
}

func TestFilenameBase(t *testing.T) {
	tests := []struct {
		name  string
		title string
		url   string
		index int
		want  string
	}{
		{
			name:  "title wins",
			title: "Burn Information",
			url:   "https://www.valleyair.org/burning.html",
			want:  "burn_information",
		},
		{
			name: "last path segment without extension",
			url:  "https://www.valleyair.org/grants/trucks.html",
			want: "trucks",
		},
		{
			name: "domain for root url",
			url:  "https://www.valleyair.org/",
			want: "www.valleyair.org",
		},
		{
			name:  "indexed fallback",
			url:   "///",
			index: 6,
			want:  "untitled_page_7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilenameBase(tt.title, tt.url, tt.index))
		})
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	first := UniquePath(dir, "page")
	assert.Equal(t, filepath.Join(dir, "page.md"), first)
	require.NoError(t, os.WriteFile(first, []byte("x"), 0o644))

	second := UniquePath(dir, "page")
	assert.Equal(t, filepath.Join(dir, "page_1.md"), second)
}

func TestPruneMarkdown(t *testing.T) {
	input := strings.Join([]string{
		"# Air Quality Programs",
		"",
		"",
		"",
		"The district offers several programs to reduce emissions across the valley.",
		"ok",
		"- Short item",
		"Click here",
	}, "\n")

	got := PruneMarkdown(input, 5)
	lines := strings.Split(got, "\n")

	assert.Contains(t, lines, "# Air Quality Programs")
	assert.Contains(t, lines, "- Short item")
	assert.NotContains(t, lines, "ok")
	assert.NotContains(t, lines, "Click here")
	// Blank runs collapse to a single separator.
	assert.NotContains(t, got, "\n\n\n")
}

func TestCrawlerRunWritesPages(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset><url><loc>%s/page</loc></url><url><loc>%s/empty</loc></url></urlset>`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Wood Burning</title></head><body>
<nav>Home | About | Contact</nav>
<p>Residential wood burning is restricted on days with poor air quality across the valley.</p>
<footer>Copyright Valley Air District</footer>
</body></html>`)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Empty</title></head><body><p>hi</p></body></html>`)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	c := New(Config{
		SitemapURL:  srv.URL + "/sitemap.xml",
		OutputDir:   dir,
		Parallelism: 2,
		MinWords:    5,
	}, nil)

	processed, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	content, err := os.ReadFile(filepath.Join(dir, "wood_burning.md"))
	require.NoError(t, err)

	text := string(content)
	lines := strings.SplitN(text, "\n", 2)
	assert.Equal(t, srv.URL+"/page", lines[0])
	assert.Contains(t, text, "Residential wood burning is restricted")
	assert.NotContains(t, text, "Copyright Valley Air District")
	assert.NotContains(t, text, "Home | About | Contact")
}
