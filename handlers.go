package atelier

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHome(c echo.Context) error {
	products, err := a.Cache.ListItems(KindProduct, "")
	if err != nil {
		return err
	}
	posts, err := a.Cache.ListItems(KindBlog, "")
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(products, posts, a.Config.URL))
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, a.Views.About(a.Config.URL))
}

// handleSection lists published items of one kind, optionally filtered by tag.
func (a *App) handleSection(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		tag := c.QueryParam("tag")
		items, err := a.Cache.ListItems(kind, tag)
		if err != nil {
			return err
		}
		tags, err := a.Cache.ListTags(kind)
		if err != nil {
			return err
		}
		return Render(c, a.Views.Section(kind, items, tag, tags, a.Config.URL))
	}
}

// handleItem serves one published item page. Related items of the same kind
// share at least one tag.
func (a *App) handleItem(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		slug := c.Param("slug")
		item, err := a.Cache.GetItem(kind, slug)
		if err != nil {
			if err == sql.ErrNoRows {
				return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
			}
			return err
		}
		items, err := a.Cache.ListItems(kind, "")
		if err != nil {
			return err
		}
		related := FilterRelatedItems(item, items)
		return Render(c, a.Views.Item(item, related, a.Config.URL))
	}
}

func (a *App) handleSitemap(c echo.Context) error {
	return a.renderSitemap(c)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListItems(KindBlog, "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
