// Package analytics keeps privacy-first usage counters: lifetime totals and
// a rolling log of per-day counters for visits, generated and scanned codes.
package analytics

import (
	"fmt"
	"strings"
	"time"
)

// Storage keys of the two persisted records.
const (
	TotalsKey = "qr-vision-analytics"
	DailyKey  = "qr-vision-daily-stats"
)

// MaxDailyEntries caps the daily log; older days are evicted first.
const MaxDailyEntries = 30

// dateLayout is the calendar-day key of a DailyStat.
const dateLayout = "2006-01-02"

// Kind names one of the tracked counters. Its value is the daily field key.
type Kind string

const (
	KindVisit     Kind = "visits"
	KindGenerated Kind = "qrGenerated"
	KindScanned   Kind = "qrScanned"
)

// Event returns the lifecycle event name clients send for k.
func (k Kind) Event() string {
	switch k {
	case KindVisit:
		return "visit"
	case KindGenerated:
		return "generated"
	case KindScanned:
		return "scanned"
	}
	return string(k)
}

// ParseEvent maps a lifecycle event name ("visit", "generated", "scanned")
// to its Kind.
func ParseEvent(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "visit", "page-visit":
		return KindVisit, nil
	case "generated", "qr-generated":
		return KindGenerated, nil
	case "scanned", "qr-scanned":
		return KindScanned, nil
	}
	return "", fmt.Errorf("unknown event %q", name)
}

// Totals holds the lifetime counters.
type Totals struct {
	TotalVisits      int       `json:"totalVisits"`
	QRCodesGenerated int       `json:"qrCodesGenerated"`
	QRCodesScanned   int       `json:"qrCodesScanned"`
	LastVisit        time.Time `json:"lastVisit"`
}

// DailyStat holds the counters of one calendar day.
type DailyStat struct {
	Date        string `json:"date"` // "2025-02-20"
	Visits      int    `json:"visits"`
	QRGenerated int    `json:"qrGenerated"`
	QRScanned   int    `json:"qrScanned"`
}

// bump increments the counter matching k.
func (d *DailyStat) bump(k Kind) {
	switch k {
	case KindVisit:
		d.Visits++
	case KindGenerated:
		d.QRGenerated++
	case KindScanned:
		d.QRScanned++
	}
}

// IsBot checks if the User-Agent is likely a bot/crawler.
func IsBot(ua string) bool {
	ua = strings.ToLower(ua)
	bots := []string{
		"bot", "crawler", "spider", "crawl", "slurp", "scrape",
		"googlebot", "bingbot", "yandex", "baidu", "duckduckbot",
		"facebookexternalhit", "twitterbot", "linkedinbot",
		"ahrefsbot", "semrushbot", "mj12bot", "dotbot",
	}
	for _, bot := range bots {
		if strings.Contains(ua, bot) {
			return true
		}
	}
	return false
}
