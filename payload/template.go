// Package payload turns template form fields into the text encoded in a QR
// symbol: WiFi configs, vCards, geo URIs, mailto links, WhatsApp links and
// plain product cards.
package payload

import (
	"errors"
	"strings"
)

// ErrUnknownTemplate is returned by Encode for an identifier outside the catalog.
var ErrUnknownTemplate = errors.New("payload: unknown template")

// TemplateID identifies one template and its formatting rule.
type TemplateID string

const (
	WiFi     TemplateID = "wifi"
	VCard    TemplateID = "vcard"
	Location TemplateID = "location"
	WhatsApp TemplateID = "whatsapp"
	Email    TemplateID = "email"
	Product  TemplateID = "product"
)

// FieldType tags how a field is edited.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTel      FieldType = "tel"
	FieldURL      FieldType = "url"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
)

// Field describes one input of a template.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
	Required    bool      `json:"required,omitempty"`
}

// FormData maps field names to the values entered for one template session.
type FormData map[string]string

// Get returns the value for name, or "" when it was never set.
func (d FormData) Get(name string) string {
	return d[name]
}

// Template is a catalog entry: a fixed schema plus its formatting rule.
type Template struct {
	ID     TemplateID `json:"id"`
	Name   string     `json:"name"`
	Fields []Field    `json:"fields"`

	encode func(FormData) string
}

// Encode formats data with the template's rule. It never fails: absent
// values are substituted with the empty string.
func (t Template) Encode(data FormData) string {
	if data == nil {
		data = FormData{}
	}
	return t.encode(data)
}

// Missing lists required fields whose value is blank. The encoder itself
// does not reject such input; callers decide whether to warn.
func (t Template) Missing(data FormData) []string {
	var missing []string
	for _, f := range t.Fields {
		if f.Required && strings.TrimSpace(data.Get(f.Name)) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// hiddenYes is the option of the WiFi "hidden" field that means true.
const hiddenYes = "نعم"

var catalog = []Template{
	{
		ID:   WiFi,
		Name: "WiFi",
		Fields: []Field{
			{Name: "ssid", Label: "اسم الشبكة (SSID)", Type: FieldText, Placeholder: "MyWiFi", Required: true},
			{Name: "password", Label: "كلمة المرور", Type: FieldText, Placeholder: "********"},
			{Name: "encryption", Label: "نوع التشفير", Type: FieldSelect, Options: []string{"WPA", "WEP", "nopass"}, Required: true},
			{Name: "hidden", Label: "شبكة مخفية؟", Type: FieldSelect, Options: []string{"لا", hiddenYes}},
		},
		encode: encodeWiFi,
	},
	{
		ID:   VCard,
		Name: "بطاقة عمل",
		Fields: []Field{
			{Name: "name", Label: "الاسم الكامل", Type: FieldText, Placeholder: "محمد أحمد", Required: true},
			{Name: "organization", Label: "المؤسسة", Type: FieldText, Placeholder: "شركة XYZ"},
			{Name: "title", Label: "المسمى الوظيفي", Type: FieldText, Placeholder: "مدير تقني"},
			{Name: "phone", Label: "رقم الجوال", Type: FieldTel, Placeholder: "+966 50 123 4567"},
			{Name: "email", Label: "البريد الإلكتروني", Type: FieldEmail, Placeholder: "name@example.com"},
			{Name: "website", Label: "الموقع الإلكتروني", Type: FieldURL, Placeholder: "https://example.com"},
			{Name: "address", Label: "العنوان", Type: FieldTextarea, Placeholder: "الرياض، المملكة العربية السعودية"},
		},
		encode: encodeVCard,
	},
	{
		ID:   Location,
		Name: "موقع جغرافي",
		Fields: []Field{
			{Name: "latitude", Label: "خط العرض", Type: FieldText, Placeholder: "24.7136", Required: true},
			{Name: "longitude", Label: "خط الطول", Type: FieldText, Placeholder: "46.6753", Required: true},
			{Name: "label", Label: "تسمية المكان", Type: FieldText, Placeholder: "مكتبنا الرئيسي"},
		},
		encode: encodeLocation,
	},
	{
		ID:   WhatsApp,
		Name: "WhatsApp",
		Fields: []Field{
			{Name: "phone", Label: "رقم الجوال (بدون +)", Type: FieldTel, Placeholder: "966501234567", Required: true},
			{Name: "message", Label: "الرسالة المسبقة", Type: FieldTextarea, Placeholder: "مرحباً! أود الاستفسار عن..."},
		},
		encode: encodeWhatsApp,
	},
	{
		ID:   Email,
		Name: "بريد إلكتروني",
		Fields: []Field{
			{Name: "email", Label: "البريد الإلكتروني", Type: FieldEmail, Placeholder: "contact@example.com", Required: true},
			{Name: "subject", Label: "الموضوع", Type: FieldText, Placeholder: "استفسار"},
			{Name: "body", Label: "محتوى الرسالة", Type: FieldTextarea, Placeholder: "مرحباً،\n\nأود الاستفسار عن..."},
		},
		encode: encodeEmail,
	},
	{
		ID:   Product,
		Name: "منتج",
		Fields: []Field{
			{Name: "name", Label: "اسم المنتج", Type: FieldText, Placeholder: "iPhone 15 Pro", Required: true},
			{Name: "price", Label: "السعر", Type: FieldText, Placeholder: "4999 ريال"},
			{Name: "description", Label: "الوصف", Type: FieldTextarea, Placeholder: "وصف المنتج..."},
			{Name: "url", Label: "رابط المنتج", Type: FieldURL, Placeholder: "https://store.com/product"},
		},
		encode: encodeProduct,
	},
}

// Templates returns the catalog in display order.
func Templates() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a template by identifier.
func Lookup(id TemplateID) (Template, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Encode formats data with the template identified by id.
func Encode(id TemplateID, data FormData) (string, error) {
	t, ok := Lookup(id)
	if !ok {
		return "", ErrUnknownTemplate
	}
	return t.Encode(data), nil
}
