// Package checkoutcontext tells a checkout desk what a student may do right now: which
// subjects they are enrolled in, which reservation of today qualifies them and how much of its
// quota is left, and which unit they already hold.
//
// The answer is read without locks and may be stale by the time a checkout is attempted.
package checkoutcontext
