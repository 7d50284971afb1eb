package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"` // Non-fatal follow-up failures (e.g. notification delivery)
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithWarnings wraps data together with soft-failure notices the
// client should surface without treating the call as failed
func SuccessWithWarnings(statusCode int, data interface{}, warnings []string) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
		Warnings:   warnings,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithData carries structured detail alongside the message, e.g. the
// per-product shortfall list on a rejected cart
func ErrorWithData(statusCode int, err string, data interface{}) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
		Data:       data,
	}
}
