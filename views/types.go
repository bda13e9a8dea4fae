package views

// Site holds site-wide settings passed to every page so nothing is
// hardcoded in the components.
type Site struct {
	Name        string
	URL         string // canonical base URL
	Description string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	NoIndex     bool
}
