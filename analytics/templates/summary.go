package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// SummaryFragment renders the statistics block. The admin dashboard embeds it
// and /admin/analytics/fragments/summary serves it on its own.
func SummaryFragment(vm *SummaryViewModel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div id="analytics-summary" class="stats">`)
		card(&b, "إجمالي الزيارات", fmt.Sprint(vm.TotalVisits))
		card(&b, "رموز QR المولدة", fmt.Sprint(vm.TotalGenerated))
		card(&b, "رموز QR الممسوحة", fmt.Sprint(vm.TotalScanned))
		card(&b, "متوسط يومي", fmt.Sprint(vm.AvgPerDay))
		card(&b, "يوم الذروة", vm.PeakDay)
		card(&b, "معدل التحويل", fmt.Sprintf("%d%%", vm.ConversionRate))
		card(&b, "آخر زيارة", vm.LastVisit)
		b.WriteString(`</div>`)

		b.WriteString(`<table class="daily"><thead><tr><th>التاريخ</th><th>رموز مولدة</th><th>رموز ممسوحة</th><th>زيارات</th></tr></thead><tbody>`)
		if len(vm.Recent) == 0 {
			b.WriteString(`<tr><td colspan="4" class="loading">لا توجد بيانات</td></tr>`)
		}
		for _, d := range vm.Recent {
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%d</td></tr>`,
				templ.EscapeString(d.Date),
				bar(d.QRGenerated, vm.MaxGenerated),
				bar(d.QRScanned, vm.MaxScanned),
				d.Visits)
		}
		b.WriteString(`</tbody></table>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func card(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, `<div class="stat"><p class="value">%s</p><p class="label">%s</p></div>`,
		templ.EscapeString(value), templ.EscapeString(label))
}

// bar renders a count with a width proportional to the column maximum.
func bar(n, maxN int) string {
	pct := 0
	if maxN > 0 {
		pct = n * 100 / maxN
	}
	return fmt.Sprintf(`<span class="bar" style="width:%d%%"></span>%d`, pct, n)
}
