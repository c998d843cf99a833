// Package logger builds zap loggers and the field helpers shared by the
// engine, the HTTP layer and the CLI.
package logger
