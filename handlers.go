package pubgarden

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// handlePage serves every path through the route table. Paths without a
// route get the not-found page with a 404 status.
func (a *App) handlePage(c echo.Context) error {
	ctx := c.Request().Context()
	table, err := a.Cache.Routes(ctx)
	if err != nil {
		return err
	}
	route, found := table.Match(c.Request().URL.EscapedPath())
	if !found || route.Name == a.Config.NotFound.Name {
		return a.renderNotFound(c, route)
	}

	data, err := a.pageData(ctx, table, route)
	if errors.Is(err, ErrNotFound) {
		return a.renderNotFound(c, route)
	}
	if err != nil {
		return err
	}
	return Render(c, a.Views.page(route.Page)(data))
}

func (a *App) renderNotFound(c echo.Context, route Route) error {
	data := PageData{Site: a.Config, Route: route, Meta: PageMeta{Title: "Not found", OGType: "website"}}
	return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(data))
}

// pageData collects what the view needs for route: the entry and its body
// for entry routes, the routed collections for static pages.
func (a *App) pageData(ctx context.Context, table *RouteTable, route Route) (PageData, error) {
	data := PageData{
		Site:  a.Config,
		Route: route,
		Links: make(map[string]string),
		Meta: PageMeta{
			Title:       a.Config.Name,
			Description: a.Config.Description,
			URL:         BuildURL(a.Config.URL, route.Path),
			OGType:      "website",
		},
	}
	for _, r := range table.Routes {
		if r.Collection != "" {
			data.Links[r.Collection+"/"+r.EntryID] = r.Path
		}
	}

	if route.Collection == "" {
		data.Lists = make(map[string][]Entry)
		for _, t := range a.Config.Templates {
			list, err := a.Cache.Entries(ctx, t.TypeName)
			if err != nil {
				return PageData{}, err
			}
			data.Lists[t.TypeName] = list
		}
		return data, nil
	}

	e, err := a.Cache.GetEntry(ctx, route.Collection, route.EntryID)
	if err != nil {
		return PageData{}, err
	}
	data.Entry = &e
	data.Body = a.Markdown.Component(e.Body)
	data.Meta.Title = e.Title + " · " + a.Config.Name
	if s := e.Summary(); s != "" {
		data.Meta.Description = s
	}
	if route.Collection == a.Config.Publish.Collection {
		data.Meta.OGType = "article"
	}
	if len(e.Refs) > 0 {
		siblings, err := a.Cache.Entries(ctx, route.Collection)
		if err != nil {
			return PageData{}, err
		}
		data.Related = RelatedEntries(e, siblings)
	}
	if e.Synthetic {
		linking, err := a.referencing(ctx, route.Collection, e.ID)
		if err != nil {
			return PageData{}, err
		}
		data.Linking = linking
	}
	return data, nil
}

// referencing finds the entries of every source whose references point at
// the given entry, e.g. the posts of a synthesized category.
func (a *App) referencing(ctx context.Context, collection, id string) ([]Entry, error) {
	var out []Entry
	for _, s := range a.Config.Sources {
		for _, ref := range s.Refs {
			if ref.TypeName != collection {
				continue
			}
			list, err := a.Cache.Entries(ctx, s.TypeName)
			if err != nil {
				return nil, err
			}
			for _, e := range ReferencingEntries(list, ref.Field, id) {
				if !containsEntry(out, e) {
					out = append(out, e)
				}
			}
		}
	}
	return out, nil
}

func containsEntry(list []Entry, e Entry) bool {
	for _, x := range list {
		if x.Collection == e.Collection && x.ID == e.ID {
			return true
		}
	}
	return false
}

func (a *App) handleSitemap(c echo.Context) error {
	table, err := a.Cache.Routes(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, table)
}

func (a *App) handleFeed(c echo.Context) error {
	ctx := c.Request().Context()
	table, err := a.Cache.Routes(ctx)
	if err != nil {
		return err
	}
	posts, err := a.Cache.Entries(ctx, a.Config.Publish.Collection)
	if err != nil {
		return err
	}
	return a.renderRSS(c, table, posts)
}

func (a *App) handleRouteTable(c echo.Context) error {
	ctx := c.Request().Context()
	table, err := a.Cache.Routes(ctx)
	if err != nil {
		return err
	}
	info, err := a.Store.LatestBuild(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if info.ID != "" {
		c.Response().Header().Set("X-Pubgarden-Build", info.ID)
	}
	return c.JSON(http.StatusOK, routeArtifact{Site: a.Config.Name, Mode: a.Config.Mode, Routes: table.Routes})
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\nAllow: /\n\n")
	b.WriteString("Sitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = a.renderNotFound(c, Route{Path: WildcardPath, Name: WildcardPath, Page: a.Config.NotFound.Page})
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
