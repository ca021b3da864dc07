// Package password evaluates admin credentials against the site's password
// policy and computes a presentation-oriented strength score.
//
// Validate(pw, rules) checks every enabled rule and reports all violations at
// once, in the fixed order length, uppercase, lowercase, number, special
// character. Strength(pw) is an additive 0–100 heuristic:
//
//	length ≥ 8  +20, ≥ 12 +10, ≥ 16 +10
//	lowercase   +15
//	uppercase   +15
//	digit       +15
//	special     +15
//
// Label and TierFor map a score to Weak (<40), Medium (40–69) or Strong (≥70).
// Everything in this package is pure: no I/O, no errors.
package password
