package atelier

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FilterRelatedItems finds items that share at least one tag with current.
func FilterRelatedItems(current ContentItem, items []ContentItem) []ContentItem {
	tagSet := make(map[string]struct{})
	for _, t := range current.Tags {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	var related []ContentItem
	for _, item := range items {
		if item.Slug == current.Slug {
			continue
		}
		for _, t := range item.Tags {
			tag := strings.ToLower(strings.TrimSpace(t))
			if _, ok := tagSet[tag]; ok {
				related = append(related, item)
				break
			}
		}
	}
	return related
}

// JoinTags joins tags with ", ".
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// PathEscape escapes a string for use in a URL path.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// FormatPrice renders a price in cents as a display string, e.g. "49.00".
// Zero prices render as the empty string so free items show no price tag.
func FormatPrice(cents int64) string {
	if cents <= 0 {
		return ""
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema using SiteConfig.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ItemJsonLD returns a JSON-LD string for a content item. Products and
// workshops get a Product schema with an offer; everything else is a
// BlogPosting.
func ItemJsonLD(item ContentItem, cfg SiteConfig) string {
	itemURL := BuildURL(cfg.URL, strings.TrimPrefix(sectionPath(item.Kind), "/"), item.Slug)
	var data map[string]interface{}
	switch item.Kind {
	case KindProduct, KindWorkshop:
		data = map[string]interface{}{
			"@context":    "https://schema.org",
			"@type":       "Product",
			"name":        item.Title,
			"description": item.Summary,
			"url":         itemURL,
		}
		if item.PriceCents > 0 {
			data["offers"] = map[string]interface{}{
				"@type":         "Offer",
				"price":         FormatPrice(item.PriceCents),
				"priceCurrency": "EUR",
				"url":           itemURL,
			}
		}
	default:
		data = map[string]interface{}{
			"@context":      "https://schema.org",
			"@type":         "BlogPosting",
			"headline":      item.Title,
			"description":   item.Summary,
			"datePublished": item.Date,
			"url":           itemURL,
			"mainEntityOfPage": map[string]string{
				"@type": "WebPage",
				"@id":   itemURL,
			},
		}
		if cfg.Author != "" {
			data["author"] = map[string]string{
				"@type": "Person",
				"name":  cfg.Author,
			}
		}
		if cfg.Name != "" {
			data["publisher"] = map[string]string{
				"@type": "Organization",
				"name":  cfg.Name,
			}
		}
		if len(item.Tags) > 0 {
			data["keywords"] = strings.Join(item.Tags, ", ")
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
