// Package resilience wraps calls to generation backends with retry,
// circuit breaking and concurrency limits.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("image-generation"))
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "image-generation", MaxConcurrent: 4})
//
//	resp, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (Resp, error) {
//	    return resilience.ExecuteWithResult(bh, ctx, func() (Resp, error) {
//	        var out Resp
//	        err := cb.Execute(func() (e error) { out, e = call(ctx); return })
//	        return out, err
//	    })
//	})
package resilience
