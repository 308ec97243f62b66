// Package logger provides structured logging using zerolog.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("login")
//	log.Info("account upgraded", logger.Fields("account_id", id))
//
// Credential material (passwords, salts, digests, stored hashes) must never
// be passed to a logger. Use Redact for email addresses.
package logger
