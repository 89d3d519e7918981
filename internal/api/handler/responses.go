package handler

// errorResponse documents the error envelope written by the router's error
// handler.
type errorResponse struct {
	Error string `json:"error"`
}
