// Package returnunit closes the active loan of a student and makes the unit AVAILABLE again.
package returnunit
