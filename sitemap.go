package pubgarden

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// buildSitemap lists every routable page once, in route table order. The
// not-found page and the wildcard are left out.
func buildSitemap(base string, table *RouteTable, notFoundName string) sitemapURLSet {
	var urls []sitemapURL
	for _, r := range table.Routes {
		if r.IsWildcard() || (r.Collection == "" && r.Name == notFoundName) {
			continue
		}
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, r.Path),
			LastMod: r.Meta["date"],
		})
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func (a *App) renderSitemap(c echo.Context, table *RouteTable) error {
	sitemap := buildSitemap(a.Config.URL, table, a.Config.NotFound.Name)
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
