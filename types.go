package atelier

// Content kinds the storefront serves. Each kind gets its own public
// section and shares one CRUD surface in the admin back office.
const (
	KindBlog     = "blog"
	KindDIY      = "diy"
	KindWorkshop = "workshop"
	KindProduct  = "product"
)

// ValidKind reports whether kind names a managed content kind.
func ValidKind(kind string) bool {
	switch kind {
	case KindBlog, KindDIY, KindWorkshop, KindProduct:
		return true
	}
	return false
}

// ContentItem is the unified content type behind products, blog posts,
// DIY tutorials and workshops.
type ContentItem struct {
	Kind       string
	Slug       string
	Title      string
	Date       string
	Tags       []string
	Summary    string
	Body       string
	PriceCents int64 // products and workshops; zero elsewhere
	Link       string
	Published  bool
}

// ContactMessage is one submission from the contact-form router.
type ContactMessage struct {
	ID         int64
	Topic      string
	Name       string
	Email      string
	Body       string
	ReceivedAt string
}

// Image is an uploaded asset managed from the admin back office.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}

// sectionPath maps a content kind to its public URL section.
func sectionPath(kind string) string {
	switch kind {
	case KindProduct:
		return "/shop"
	case KindWorkshop:
		return "/workshops"
	case KindDIY:
		return "/diy"
	default:
		return "/blog"
	}
}