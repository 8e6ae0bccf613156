// Package logger builds the application's slog logger: JSON in production, text
// everywhere else, always tagged with the running environment.
package logger
