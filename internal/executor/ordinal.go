package executor

import "strconv"

// ordinal formats n as "1st", "2nd", "3rd", "4th", ... matching the
// attempt-counting log style of the reference implementation this
// system's retry bookkeeping is modeled on.
func ordinal(n int) string {
	if n <= 0 {
		return strconv.Itoa(n) + "th"
	}
	switch {
	case n%100 >= 11 && n%100 <= 13:
		return strconv.Itoa(n) + "th"
	}
	switch n % 10 {
	case 1:
		return strconv.Itoa(n) + "st"
	case 2:
		return strconv.Itoa(n) + "nd"
	case 3:
		return strconv.Itoa(n) + "rd"
	default:
		return strconv.Itoa(n) + "th"
	}
}
