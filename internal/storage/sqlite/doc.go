// Package sqlite implements the bot's storage contracts on a single
// SQLite database with embedded migrations.
package sqlite
