// Package availableunits answers how many units are still unreserved on a day.
package availableunits
