package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/templ"

	"github.com/qrvision/qrvision/analytics/templates"
	"github.com/qrvision/qrvision/payload"
)

// Home is the generator and scanner page. The template list is rendered
// server-side; qrvision.js fetches field definitions from /api/templates.
func Home(site Site, tmpls []payload.Template, csrfToken string) templ.Component {
	meta := PageMeta{URL: site.URL}
	return page(site, meta, func(ctx context.Context, b *strings.Builder) error {
		b.WriteString(`<div id="notice" class="notice" hidden></div>`)

		b.WriteString(`<section class="card"><h2>توليد رمز QR</h2>`)
		b.WriteString(`<form id="text-form"><label>نص أو رابط<input id="qr-text" name="text" placeholder="https://example.com"></label><button type="submit">توليد</button></form>`)
		b.WriteString(`</section>`)

		b.WriteString(`<section class="card"><h2>القوالب الجاهزة</h2><div id="template-picker">`)
		b.WriteString(`<noscript><ul>`)
		for _, t := range tmpls {
			fmt.Fprintf(b, `<li>%s</li>`, templ.EscapeString(t.Name))
		}
		b.WriteString(`</ul></noscript></div>`)
		b.WriteString(`<form id="template-form"><div id="template-fields"></div><button type="submit">توليد من القالب</button></form>`)
		b.WriteString(`</section>`)

		b.WriteString(`<section class="card"><h2>التخصيص</h2>`)
		b.WriteString(`<label>الحجم<input id="qr-size" type="number" min="64" max="2048" value="256"></label>`)
		b.WriteString(`<label>لون الرمز<input id="qr-fg" type="color" value="#000000"></label>`)
		b.WriteString(`<label>لون الخلفية<input id="qr-bg" type="color" value="#ffffff"></label>`)
		b.WriteString(`<label>تصحيح الأخطاء<select id="qr-level"><option value="L">L</option><option value="M" selected>M</option><option value="Q">Q</option><option value="H">H</option></select></label>`)
		b.WriteString(`</section>`)

		b.WriteString(`<section id="qr-result" class="card" hidden><img id="qr-preview" alt="QR"><p><a id="qr-download" download>تحميل</a> <button id="qr-copy" type="button">نسخ المحتوى</button></p></section>`)

		b.WriteString(`<section class="card"><h2>مسح رمز QR</h2>`)
		b.WriteString(`<video id="scan-video" playsinline muted style="width:100%;max-width:480px"></video>`)
		b.WriteString(`<p><button id="scan-start" type="button">تشغيل الكاميرا</button> <button id="scan-stop" type="button">إيقاف</button></p>`)
		b.WriteString(`<label>أو ارفع صورة<input id="scan-upload" type="file" accept="image/*"></label>`)
		b.WriteString(`<div id="scan-result" hidden><p id="scan-text"></p><a id="scan-open" target="_blank" rel="noopener" hidden>فتح الرابط</a></div>`)
		b.WriteString(`</section>`)

		fmt.Fprintf(b, `<meta name="csrf-token" content="%s">`, templ.EscapeString(csrfToken))
		b.WriteString(`<script src="/public/qrvision.js" defer></script>`)
		return nil
	})
}

// AdminLogin is the password form guarding the dashboard.
func AdminLogin(site Site, showError bool, csrfToken string) templ.Component {
	meta := PageMeta{Title: "لوحة التحكم", NoIndex: true}
	return page(site, meta, func(ctx context.Context, b *strings.Builder) error {
		b.WriteString(`<section class="card"><h2>تسجيل الدخول</h2>`)
		if showError {
			b.WriteString(`<p class="notice error">كلمة المرور غير صحيحة</p>`)
		}
		b.WriteString(`<form method="post" action="/admin/login/">`)
		b.WriteString(csrfField(csrfToken))
		b.WriteString(`<label>كلمة المرور<input type="password" name="password" autofocus required></label>`)
		b.WriteString(`<button type="submit">دخول</button></form></section>`)
		return nil
	})
}

// AdminDashboard shows the analytics summary with reset and logout actions.
func AdminDashboard(site Site, summary *templates.SummaryViewModel, message, csrfToken string) templ.Component {
	meta := PageMeta{Title: "الإحصائيات", NoIndex: true}
	return page(site, meta, func(ctx context.Context, b *strings.Builder) error {
		b.WriteString(`<section class="card"><h2>الإحصائيات</h2>`)
		if message != "" {
			fmt.Fprintf(b, `<p class="notice success">%s</p>`, templ.EscapeString(message))
		}
		if err := templates.SummaryFragment(summary).Render(ctx, b); err != nil {
			return err
		}
		b.WriteString(`<p><a href="/admin/analytics/api/summary">JSON</a></p></section>`)

		b.WriteString(`<section class="card">`)
		b.WriteString(`<form method="post" action="/admin/reset/" onsubmit="return confirm('هل أنت متأكد من مسح جميع البيانات؟')">`)
		b.WriteString(csrfField(csrfToken))
		b.WriteString(`<button type="submit">مسح جميع البيانات</button></form>`)
		b.WriteString(`<form method="post" action="/admin/logout/">`)
		b.WriteString(csrfField(csrfToken))
		b.WriteString(`<button type="submit">تسجيل الخروج</button></form></section>`)
		return nil
	})
}

func NotFound(site Site) templ.Component {
	return page(site, PageMeta{Title: "غير موجود", NoIndex: true}, func(ctx context.Context, b *strings.Builder) error {
		b.WriteString(`<section class="card"><h2>404</h2><p>الصفحة غير موجودة.</p><a href="/">العودة للرئيسية</a></section>`)
		return nil
	})
}

func ServerError(site Site) templ.Component {
	return page(site, PageMeta{Title: "خطأ", NoIndex: true}, func(ctx context.Context, b *strings.Builder) error {
		b.WriteString(`<section class="card"><h2>500</h2><p>حدث خطأ غير متوقع. حاول مرة أخرى لاحقاً.</p></section>`)
		return nil
	})
}
