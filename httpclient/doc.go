// Package httpclient is the JSON-over-HTTP transport used by the generation
// backends.
//
// The client classifies HTTP failures into typed errors and leaves retry and
// circuit breaking to the provider middlewares that wrap each backend.
//
//	c, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://gen.example.com",
//	    APIKey:  os.Getenv("FLOWGEN_BACKEND_API_KEY"),
//	})
//	resp, err := httpclient.PostJSON[ImageResponse](c, ctx, "/v1/images/generations", req)
package httpclient
