// Package views holds the default page components. They are plain
// templ.Components, so callers can swap any of them for their own.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const styles = `body{font-family:system-ui,sans-serif;margin:0;background:#f5f5f4;color:#1c1917}
header,main,footer{max-width:960px;margin:0 auto;padding:1rem}
.card{background:#fff;border:1px solid #e7e5e4;border-radius:8px;padding:1rem;margin-bottom:1rem}
label{display:block;margin:.5rem 0}input,select,textarea{display:block;width:100%;padding:.4rem}
button{padding:.5rem 1rem;cursor:pointer}.notice{padding:.5rem;border-radius:4px}
.notice.error{background:#fee2e2}.notice.success{background:#dcfce7}.notice.warning{background:#fef9c3}
.stats{display:grid;grid-template-columns:repeat(auto-fit,minmax(140px,1fr));gap:.5rem}
.stat{background:#fff;border:1px solid #e7e5e4;border-radius:6px;padding:.5rem;text-align:center}
.stat .value{font-size:1.5rem;font-weight:700;margin:0}.stat .label{margin:0;color:#78716c}
.daily{width:100%;border-collapse:collapse;margin-top:1rem}.daily td,.daily th{padding:.3rem;border-bottom:1px solid #e7e5e4}
.bar{display:inline-block;height:.5rem;background:#0ea5e9;margin-inline-end:.3rem}`

// page writes the shared document shell around body.
func page(site Site, meta PageMeta, body func(ctx context.Context, b *strings.Builder) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		title := site.Name
		if meta.Title != "" {
			title = meta.Title + " | " + site.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = site.Description
		}

		b.WriteString(`<!DOCTYPE html><html lang="ar" dir="rtl"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		fmt.Fprintf(&b, `<title>%s</title>`, templ.EscapeString(title))
		fmt.Fprintf(&b, `<meta name="description" content="%s">`, templ.EscapeString(desc))
		if meta.NoIndex {
			b.WriteString(`<meta name="robots" content="noindex">`)
		}
		if meta.URL != "" {
			fmt.Fprintf(&b, `<link rel="canonical" href="%s">`, templ.EscapeString(meta.URL))
			fmt.Fprintf(&b, `<meta property="og:url" content="%s">`, templ.EscapeString(meta.URL))
		}
		fmt.Fprintf(&b, `<meta property="og:title" content="%s">`, templ.EscapeString(title))
		b.WriteString(`<style>` + styles + `</style></head><body>`)
		fmt.Fprintf(&b, `<header><a href="/"><strong>%s</strong></a></header><main>`, templ.EscapeString(site.Name))
		if err := body(ctx, &b); err != nil {
			return err
		}
		fmt.Fprintf(&b, `</main><footer><small>%s</small></footer></body></html>`, templ.EscapeString(site.Name))

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func csrfField(token string) string {
	return fmt.Sprintf(`<input type="hidden" name="_csrf" value="%s">`, templ.EscapeString(token))
}
