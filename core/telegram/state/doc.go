// Package state keeps per-user conversation sessions for Telegram bots.
// It knows nothing about a bot's dialog: bots define their own State values
// and keep collected input in Session.Data.
package state
