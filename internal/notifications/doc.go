// Package notifications delivers operator-facing workflow events via ntfy.
//
// The default implementation posts to the topic configured in config.toml and
// gracefully degrades to a no-op when no topic is set. Per-category toggles
// (queue, delivery, errors) let operators quiet noisy event classes without
// disabling the channel entirely.
//
// All workflow code depends only on the Service interface, so alternative
// transports stay a drop-in change.
package notifications
