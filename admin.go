package atelier

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("kind"), c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if err := bcrypt.CompareHashAndPassword([]byte(a.Config.AdminPasswordHash), []byte(pass)); err != nil {
		a.loginLimiter.Record(c.RealIP())
		return Render(c, a.Views.AdminLogin(true, CsrfToken(c)))
	}
	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminItem(c echo.Context) error {
	kind := c.Param("kind")
	if !ValidKind(kind) {
		return c.NoContent(http.StatusBadRequest)
	}
	slug := c.Param("slug")
	item, err := a.Store.GetItemAny(kind, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	return Render(c, a.Views.AdminFormPartial(item, CsrfToken(c)))
}

func (a *App) handleAdminSave(c echo.Context) error {
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	kind := strings.TrimSpace(c.FormValue("kind"))
	if !ValidKind(kind) {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Unknown+content+kind.")
	}
	title := strings.TrimSpace(c.FormValue("title"))
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return c.Redirect(http.StatusSeeOther, "/admin/?kind="+kind+"&msg=Slug+is+required.+Add+a+title+or+slug.")
	}
	date := strings.TrimSpace(c.FormValue("date"))
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return c.Redirect(http.StatusSeeOther, "/admin/?kind="+kind+"&msg=Invalid+date+format.+Use+YYYY-MM-DD.")
	}
	var priceCents int64
	if raw := strings.TrimSpace(c.FormValue("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price < 0 {
			return c.Redirect(http.StatusSeeOther, "/admin/?kind="+kind+"&msg=Invalid+price.")
		}
		priceCents = int64(price*100 + 0.5)
	}
	tags := strings.Split(c.FormValue("tags"), ",")
	for i := range tags {
		tags[i] = strings.TrimSpace(tags[i])
	}
	tags = FilterEmpty(tags)
	summary := c.FormValue("summary")
	body := c.FormValue("body")
	published := c.FormValue("published") != ""
	if err := a.Store.SaveItem(ContentItem{
		Kind:       kind,
		Slug:       slug,
		Title:      title,
		Date:       date,
		Tags:       tags,
		Summary:    summary,
		Body:       body,
		PriceCents: priceCents,
		Published:  published,
	}); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, kind, "saved")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	kind := c.Param("kind")
	if !ValidKind(kind) {
		return c.NoContent(http.StatusBadRequest)
	}
	slug := c.Param("slug")
	if err := a.Store.DeleteItem(kind, slug); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, kind, "deleted")
}

func (a *App) renderAdminDashboard(c echo.Context, kind, msg string) error {
	if !ValidKind(kind) {
		kind = KindBlog
	}
	items, err := a.Store.ListAllItems(kind)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(kind, items, msg, CsrfToken(c)))
}
