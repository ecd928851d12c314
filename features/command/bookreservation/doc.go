// Package bookreservation lets a teacher reserve units for a class session.
//
// The capacity check and the insert run in one transaction holding the lock of the session's
// day, so the reserved total of a day never exceeds the units that are not in maintenance.
package bookreservation
