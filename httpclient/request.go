package httpclient

// Request describes an outbound HTTP request.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body is JSON-encoded unless it is a []byte.
	Body any
}

// Response is the buffered result of an HTTP request.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}
