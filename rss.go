package pubgarden

import (
	"encoding/xml"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

// buildFeed lists the routed entries of posts, newest first. Entries without
// a route (no template for the collection) are skipped.
func buildFeed(cfg SiteConfig, table *RouteTable, posts []Entry) rssXML {
	sorted := append([]Entry(nil), posts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date().After(sorted[j].Date())
	})
	items := make([]rssItem, 0, len(sorted))
	for _, p := range sorted {
		r, ok := table.ForEntry(p.Collection, p.ID)
		if !ok {
			continue
		}
		pubDate := ""
		if d := p.Date(); !d.IsZero() {
			pubDate = d.Format(time.RFC1123Z)
		}
		postURL := BuildURL(cfg.URL, r.Path)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Summary(),
			PubDate:     pubDate,
			GUID:        postURL,
		})
	}
	return rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       cfg.Name,
			Link:        cfg.URL,
			Description: cfg.Description,
			Items:       items,
		},
	}
}

func (a *App) renderRSS(c echo.Context, table *RouteTable, posts []Entry) error {
	feed := buildFeed(a.Config, table, posts)
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
