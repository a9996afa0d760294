package atelier

import (
	"encoding/xml"
	"net/http"
	"strings"

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

func (a *App) renderSitemap(c echo.Context) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
		{Loc: BuildURL(base, "about")},
		{Loc: BuildURL(base, "contact")},
	}
	for _, kind := range []string{KindProduct, KindBlog, KindDIY, KindWorkshop} {
		section := strings.TrimPrefix(sectionPath(kind), "/")
		urls = append(urls, sitemapURL{Loc: BuildURL(base, section)})
		items, err := a.Cache.ListItems(kind, "")
		if err != nil {
			return err
		}
		for _, item := range items {
			urls = append(urls, sitemapURL{
				Loc:     BuildURL(base, section, item.Slug),
				LastMod: item.Date,
			})
		}
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
