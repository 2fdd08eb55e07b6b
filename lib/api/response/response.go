package response

import "sortec/lib/clock"

type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Success       bool        `json:"success" validate:"required"`
	StatusMessage string      `json:"status_message"`
	Timestamp     string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Now(),
	}
}

// Message is a successful response carrying a custom status message.
func Message(data interface{}, message string) Response {
	r := Ok(data)
	r.StatusMessage = message
	return r
}

func Error(message string) Response {
	return Response{
		Success:       false,
		StatusMessage: message,
		Timestamp:     clock.Now(),
	}
}

// Fail is an error response with details attached, such as the list of invalid fields.
func Fail(message string, data interface{}) Response {
	r := Error(message)
	r.Data = data
	return r
}
