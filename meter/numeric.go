package meter

import "strconv"

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func atoi(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
