package models

// FieldConfirmationSent marks a check-in record whose confirmation email went out.
const FieldConfirmationSent = "checkinEmailSent"

// reservedCheckInFields are denormalized onto every check-in record and can never be event names.
var reservedCheckInFields = map[string]struct{}{
	FieldID:               {},
	FieldEmail:            {},
	FieldName:             {},
	FieldConfirmationSent: {},
}

// IsReservedEvent reports whether an event name would collide with a record field.
func IsReservedEvent(event string) bool {
	_, ok := reservedCheckInFields[event]
	return ok
}

// CheckIn is one attendee's check-in record: the first check-in timestamp per event.
// Stored under checkin_id[ID] and checkin_email[Email].
type CheckIn struct {
	ID    string
	Email string
	Name  string
	// Events maps event name to the ISO-8601 timestamp of the first check-in.
	Events             map[string]string
	ConfirmationSentAt string
}

// CheckInFromFields reads a stored check-in record. Unknown non-string fields are ignored.
func CheckInFromFields(fields map[string]any) *CheckIn {
	c := &CheckIn{Events: make(map[string]string)}
	c.ID, _ = IDString(fields[FieldID])
	c.Email, _ = fields[FieldEmail].(string)
	c.Name, _ = fields[FieldName].(string)
	c.ConfirmationSentAt, _ = fields[FieldConfirmationSent].(string)
	for k, v := range fields {
		if IsReservedEvent(k) {
			continue
		}
		if ts, ok := v.(string); ok && ts != "" {
			c.Events[k] = ts
		}
	}
	return c
}

// CheckedInAt returns the timestamp for event, or "" if the attendee never checked in to it.
func (c *CheckIn) CheckedInAt(event string) string {
	if c == nil {
		return ""
	}
	return c.Events[event]
}

// Stamp returns the merge fields recording a first check-in to event at ts.
func Stamp(id, email, name, event, ts string) map[string]any {
	fields := map[string]any{
		event:      ts,
		FieldID:    id,
		FieldEmail: email,
	}
	if name != "" {
		fields[FieldName] = name
	}
	return fields
}
