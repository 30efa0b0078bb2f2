// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Masking of attributes whose key names a credential (ZAP API key,
//     ipinfo token, authorization headers)
//   - Masking of credentials embedded in URL query strings, so request
//     URLs sent to the ZAP and ipinfo APIs can be logged safely
//   - Verbose mode that lowers the level to Debug
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("zap request",
//	    "url", "http://localhost:8080/JSON/spider/action/scan/?apikey=abc&url=...",
//	)
//	// url=http://localhost:8080/JSON/spider/action/scan/?apikey=***REDACTED***&url=...
package log
