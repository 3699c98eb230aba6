// Package delivery uploads artifacts and alert images to the Telegram Bot API.
//
// Client wraps the sendVideo, sendPhoto, sendMediaGroup, and sendMessage
// methods with per-method timeouts and classifies size rejections as
// ErrPayloadTooLarge. Deliverer adds the hard budget gate: one emergency
// re-encode, never an upload that is known to be over budget, and no retries.
package delivery
