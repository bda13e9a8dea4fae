package analytics

// recentDays is how many trailing days the summary lists.
const recentDays = 7

// Summary holds the statistics shown on the admin dashboard.
type Summary struct {
	TotalVisits        int         `json:"total_visits"`
	TotalGenerated     int         `json:"total_generated"`
	TotalScanned       int         `json:"total_scanned"`
	Days               int         `json:"days"`
	AvgGeneratedPerDay float64     `json:"avg_generated_per_day"`
	PeakDay            *DailyStat  `json:"peak_day,omitempty"`
	ConversionRate     float64     `json:"conversion_rate"` // percent
	Recent             []DailyStat `json:"recent"`
	MaxGenerated       int         `json:"max_generated"`
	MaxScanned         int         `json:"max_scanned"`
}

// ComputeSummary derives a Summary from totals and the daily log. It never
// divides by zero: empty logs and zero generated counts yield zero rates.
func ComputeSummary(t Totals, log []DailyStat) Summary {
	s := Summary{
		TotalVisits:    t.TotalVisits,
		TotalGenerated: t.QRCodesGenerated,
		TotalScanned:   t.QRCodesScanned,
		Days:           len(log),
		Recent:         []DailyStat{},
	}
	if len(log) > 0 {
		s.AvgGeneratedPerDay = float64(t.QRCodesGenerated) / float64(len(log))

		peak := log[0]
		for _, d := range log[1:] {
			// strict comparison keeps the earliest day on ties
			if d.QRGenerated > peak.QRGenerated {
				peak = d
			}
		}
		s.PeakDay = &peak

		start := len(log) - recentDays
		if start < 0 {
			start = 0
		}
		s.Recent = append(s.Recent, log[start:]...)
		for _, d := range s.Recent {
			s.MaxGenerated = max(s.MaxGenerated, d.QRGenerated)
			s.MaxScanned = max(s.MaxScanned, d.QRScanned)
		}
	}
	if t.QRCodesGenerated > 0 {
		s.ConversionRate = float64(t.QRCodesScanned) / float64(t.QRCodesGenerated) * 100
	}
	return s
}
