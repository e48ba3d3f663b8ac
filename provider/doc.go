// Package provider defines the request/response contract that generation
// backends implement and the middlewares layered around them.
//
// A backend is a RequestResponse[I, O]. Cross-cutting behavior is added with
// Chain:
//
//	p := provider.Chain(
//	    provider.WithLogging[ImageRequest, ImageResponse](log),
//	    provider.WithTracing[ImageRequest, ImageResponse]("backend"),
//	    provider.WithResilience[ImageRequest, ImageResponse](resilienceCfg),
//	)(imageClient)
package provider
