// Package telegram is a minimal Bot API client covering what the daemon
// needs: message and callback intake (webhook or long poll), status message
// editing, and streamed media uploads.
//
// Every method decodes the Bot API result envelope and surfaces failures as
// APIError values carrying the error code and any retry-after hint. The bot
// token never appears in returned errors.
package telegram
