package serverutils

type Response struct {
	Success     bool   `json:"success"`
	Code        int    `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable,omitempty"`
	Data        any    `json:"data,omitempty"`
}

func SuccessResponse(message string, data any) *Response {
	return &Response{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse builds an error body. Recoverable tells the client it may
// resend the same request.
func ErrorResponse(code int, message string, recoverable bool) *Response {
	return &Response{
		Success:     false,
		Code:        code,
		Message:     message,
		Recoverable: recoverable,
	}
}
