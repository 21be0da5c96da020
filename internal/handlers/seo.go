package handlers

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/util"
)

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap lists the static pages, the category pages and every visible program
// GET /sitemap.xml
func (h *Handlers) Sitemap(c *gin.Context) {
	entries, err := h.programs.SitemapEntries(c.Request.Context())
	if err != nil {
		respondRepoError(c, err, "sitemap", "build")
		return
	}

	base := strings.TrimSuffix(h.opts.BaseURL, "/")
	today := h.now().UTC().Format(time.DateOnly)
	set := sitemapURLSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs,
		sitemapURL{Loc: base + "/", LastMod: today, ChangeFreq: "daily", Priority: "1.0"},
		sitemapURL{Loc: base + "/submit", ChangeFreq: "monthly", Priority: "0.5"},
	)
	for _, category := range models.Categories {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/category/" + util.Slugify(category),
			ChangeFreq: "daily",
			Priority:   "0.7",
		})
	}
	for _, e := range entries {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/programs/" + e.Slug,
			LastMod:    e.UpdatedAt.UTC().Format(time.DateOnly),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		util.RespondInternalError(c, "failed to build sitemap")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), body...))
}

// Robots serves robots.txt. Admin and API paths are disallowed.
// GET /robots.txt
func (h *Handlers) Robots(c *gin.Context) {
	base := strings.TrimSuffix(h.opts.BaseURL, "/")
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Disallow: /go/\n")
	b.WriteString("\nSitemap: " + base + "/sitemap.xml\n")
	c.String(http.StatusOK, b.String())
}
