// Package calendar maps sessions onto the month-scoped calendar: slot
// assignment by hour, archival of closed sessions, and the monthly reset.
package calendar
