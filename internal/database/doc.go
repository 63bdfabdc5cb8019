// Package database manages the GORM connection pool backing the dialogue
// turn log: pool tuning, a background health check, and transaction retry
// with exponential backoff for transient failures.
package database
