// Package templates contains view model types and components for the
// analytics fragments. The types mirror the analytics types to avoid import cycles.
package templates

// SummaryViewModel represents the dashboard statistics for templating.
type SummaryViewModel struct {
	TotalVisits    int
	TotalGenerated int
	TotalScanned   int
	AvgPerDay      int
	PeakDay        string
	ConversionRate int
	LastVisit      string
	Recent         []DailyViewModel
	MaxGenerated   int
	MaxScanned     int
}

// DailyViewModel represents one day of counters.
type DailyViewModel struct {
	Date        string
	Visits      int
	QRGenerated int
	QRScanned   int
}
