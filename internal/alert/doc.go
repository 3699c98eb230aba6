// Package alert throttles person-detection alerts.
//
// Two separate policies apply. The cooldown is measured in video time and
// suppresses repeated alerts for the same scene. The per-alert delay and the
// batch timeout are measured in wall time and keep delivery within the remote
// API's rate limits; both block the sweep loop.
package alert
