package ews

// ResponseType is an attendee's answer to a meeting request.
type ResponseType string

const (
	ResponseAccepted  ResponseType = "Accept"
	ResponseDeclined  ResponseType = "Decline"
	ResponseTentative ResponseType = "Tentative"
	ResponseUnknown   ResponseType = "Unknown"
)

// Responses lists every valid ResponseType.
var Responses = []ResponseType{ResponseAccepted, ResponseDeclined, ResponseTentative, ResponseUnknown}

// Valid reports whether r is one of Responses.
func (r ResponseType) Valid() bool {
	for _, v := range Responses {
		if r == v {
			return true
		}
	}
	return false
}

// Mailbox identifies a recipient or sender.
type Mailbox struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Attendee is a meeting participant and the state of their reply.
type Attendee struct {
	Name     string       `json:"name,omitempty"`
	Email    string       `json:"email"`
	Required bool         `json:"required"`
	Response ResponseType `json:"response,omitempty"`
}

// BodyType is the content format of a Body.
type BodyType string

const (
	BodyText BodyType = "Text"
	BodyHTML BodyType = "HTML"
)

// Body is the content of an item body or unique body.
type Body struct {
	Type    BodyType `json:"type"`
	Content string   `json:"content"`
}
