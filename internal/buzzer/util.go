package buzzer

import "strconv"

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}
