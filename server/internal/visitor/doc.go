// Package visitor keeps a best-effort count of total and same-day visitor
// sessions in a shared remote record, degrading to a per-device local mirror
// when the remote store is unavailable.
//
// Reconcile runs once per page load:
//
//  1. ensure the device has a visitorId (generated once, kept forever)
//  2. detect a new session via the per-day session marker
//  3. new session, device not yet counted today: increment total and today
//     (or create the record at 1/1)
//  4. new session, device already counted today: increment total only
//  5. existing session: no writes
//  6. re-read the record and mirror it into device storage
//
// Any remote failure before the write commits switches to the local path,
// which applies the same rules to the mirrored counters. A failure after the
// write only affects what is displayed. Nothing is ever decremented and
// "today" is never reset.
//
// The check-then-act sequence is not guarded: two sessions starting at the
// same moment on one device may both count.
package visitor
