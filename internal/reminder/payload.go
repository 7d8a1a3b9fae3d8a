package reminder

import "encoding/json"

const (
	DefaultTitle   = "Reminder"
	DefaultMessage = "You have a task or exam coming up."
)

// wirePayload is the JSON carried by an alarm. Pointer fields distinguish a
// missing value from an empty one.
type wirePayload struct {
	ID      *int32  `json:"id,omitempty"`
	Title   *string `json:"title,omitempty"`
	Message *string `json:"message,omitempty"`
}

// Descriptor is a decoded alarm payload, ready to publish.
type Descriptor struct {
	ID      int32  `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Encode serializes a reminder for storage in an alarm.
func Encode(id int32, title, message string) ([]byte, error) {
	return json.Marshal(wirePayload{ID: &id, Title: &title, Message: &message})
}

// Decode never fails: malformed input is treated as an empty payload and
// missing fields take their defaults.
func Decode(payload []byte) Descriptor {
	var w wirePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &w); err != nil {
			w = wirePayload{}
		}
	}

	d := Descriptor{Title: DefaultTitle, Message: DefaultMessage}
	if w.ID != nil {
		d.ID = *w.ID
	}
	if w.Title != nil {
		d.Title = *w.Title
	}
	if w.Message != nil {
		d.Message = *w.Message
	}
	return d
}
