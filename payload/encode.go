package payload

import "strings"

func encodeWiFi(d FormData) string {
	enc := d.Get("encryption")
	if enc == "" {
		enc = "WPA"
	}
	hidden := "false"
	if d.Get("hidden") == hiddenYes {
		hidden = "true"
	}
	return "WIFI:T:" + enc + ";S:" + d.Get("ssid") + ";P:" + d.Get("password") + ";H:" + hidden + ";;"
}

// encodeVCard emits the properties in a fixed order; empty values keep their line.
func encodeVCard(d FormData) string {
	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:" + d.Get("name"),
		"ORG:" + d.Get("organization"),
		"TITLE:" + d.Get("title"),
		"TEL:" + d.Get("phone"),
		"EMAIL:" + d.Get("email"),
		"URL:" + d.Get("website"),
		"ADR:;;" + d.Get("address") + ";;;;",
		"END:VCARD",
	}
	return strings.Join(lines, "\n")
}

func encodeLocation(d FormData) string {
	s := "geo:" + d.Get("latitude") + "," + d.Get("longitude")
	if label := d.Get("label"); label != "" {
		s += "?q=" + EscapeComponent(label)
	}
	return s
}

func encodeWhatsApp(d FormData) string {
	s := "https://wa.me/" + d.Get("phone")
	if msg := d.Get("message"); msg != "" {
		s += "?text=" + EscapeComponent(msg)
	}
	return s
}

// encodeEmail always carries both query parameters, even when empty.
func encodeEmail(d FormData) string {
	return "mailto:" + d.Get("email") +
		"?subject=" + EscapeComponent(d.Get("subject")) +
		"&body=" + EscapeComponent(d.Get("body"))
}

func encodeProduct(d FormData) string {
	lines := []string{"المنتج: " + d.Get("name")}
	if v := d.Get("price"); v != "" {
		lines = append(lines, "السعر: "+v)
	}
	if v := d.Get("description"); v != "" {
		lines = append(lines, "الوصف: "+v)
	}
	if v := d.Get("url"); v != "" {
		lines = append(lines, "الرابط: "+v)
	}
	return strings.Join(lines, "\n")
}

const upperhex = "0123456789ABCDEF"

// EscapeComponent percent-encodes s the way browsers encode a URI
// component: unreserved marks stay literal and a space becomes %20.
func EscapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keepLiteral(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func keepLiteral(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
