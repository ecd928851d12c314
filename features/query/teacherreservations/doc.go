// Package teacherreservations lists the reservations of a teacher, latest class first, each
// with the loans counted against it.
package teacherreservations
