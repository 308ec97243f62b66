// Package audit reports how far stored credentials have moved from the
// legacy salted-SHA-256 format to bcrypt.
//
// An audit run reads every stored hash, classifies it, and optionally flags
// legacy rows so their owners are asked to reset. Hashes and plaintexts never
// appear in the report or the log; account emails are redacted.
//
//	auditor := audit.New(store, audit.WithMetrics(metrics))
//	report, err := auditor.Run(ctx, audit.Options{FlagLegacy: true})
package audit
