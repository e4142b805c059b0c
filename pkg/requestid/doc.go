// Package requestid tags every request with a correlation id so that guard
// events and access logs from one request can be joined.
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
package requestid
