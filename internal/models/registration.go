package models

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Collections of the two indexes of each logical record.
const (
	CollectionRegistrationsByID    = "registrations_id"
	CollectionRegistrationsByEmail = "registrations_email"
	CollectionCheckInsByID         = "checkin_id"
	CollectionCheckInsByEmail      = "checkin_email"
	CollectionExtra                = "extra"
	DocIcons                       = "icons"
)

// Registration field names.
const (
	FieldID            = "id"
	FieldEmail         = "email"
	FieldOriginalEmail = "originalEmail"
	FieldName          = "name"
	FieldEndDate       = "EndDate"
)

// ErrMissingID is returned when a document or request has no usable id.
var ErrMissingID = errors.New("missing id")

// Registration is one attendee's registration. The same value is stored under
// registrations_id[ID] and registrations_email[Email].
type Registration struct {
	ID            string
	Email         string
	OriginalEmail []string
	// Extra carries every other attendee field (name, survey answers, EndDate, ...) opaquely.
	Extra map[string]any
}

// RegistrationFromFields splits a stored document into the typed core and Extra.
func RegistrationFromFields(fields map[string]any) (*Registration, error) {
	id, ok := IDString(fields[FieldID])
	if !ok {
		return nil, ErrMissingID
	}
	r := &Registration{ID: id, Extra: make(map[string]any, len(fields))}
	if email, ok := fields[FieldEmail].(string); ok {
		r.Email = email
	}
	r.OriginalEmail = stringList(fields[FieldOriginalEmail])
	for k, v := range fields {
		switch k {
		case FieldID, FieldEmail, FieldOriginalEmail:
			continue
		}
		r.Extra[k] = v
	}
	return r, nil
}

// Fields flattens the registration back into one document.
func (r *Registration) Fields() map[string]any {
	out := make(map[string]any, len(r.Extra)+3)
	for k, v := range r.Extra {
		out[k] = v
	}
	out[FieldID] = r.ID
	out[FieldEmail] = r.Email
	if r.OriginalEmail != nil {
		list := make([]any, len(r.OriginalEmail))
		for i, e := range r.OriginalEmail {
			list[i] = e
		}
		out[FieldOriginalEmail] = list
	}
	return out
}

// Name returns the attendee's display name, or "" when none was captured.
func (r *Registration) Name() string {
	if n, ok := r.Extra[FieldName].(string); ok && strings.TrimSpace(n) != "" {
		return strings.TrimSpace(n)
	}
	for _, pair := range [][2]string{{"firstName", "lastName"}, {"FirstName", "LastName"}} {
		first, _ := r.Extra[pair[0]].(string)
		last, _ := r.Extra[pair[1]].(string)
		if full := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last)); full != "" {
			return full
		}
	}
	return ""
}

// IDString renders a JSON id (string or number) as a document key.
func IDString(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		return "", false
	}
	// "/" would address a sub-collection in Firestore.
	if s == "" || strings.Contains(s, "/") {
		return "", false
	}
	return s, true
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}
