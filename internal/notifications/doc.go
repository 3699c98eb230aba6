// Package notifications delivers out-of-band operator messages.
//
// Messages go to the Telegram chat through sendMessage when bot credentials
// are configured, otherwise to an ntfy topic, otherwise nowhere. Text is
// localized through the locale package. Pipeline code treats every send as
// fire-and-forget: a failed notification is logged and never changes the
// outcome of a run.
package notifications
