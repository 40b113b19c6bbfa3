package services

import "net/http"

// InferContentType determines the content type for a rendered static body
// from the explicit override or by sniffing the body bytes.
func InferContentType(explicit string, body []byte) string {
	if explicit != "" {
		return explicit
	}
	if len(body) > 0 {
		return http.DetectContentType(body)
	}
	return "application/octet-stream"
}
