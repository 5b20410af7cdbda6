// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Services accept a context and take the logger from it, so every message
// of an install run carries the same name and run_id fields.
package logger
