package storage

import (
	"fmt"
	"strconv"
)

// FactorString renders a grouped factor cell scanned into an any. Drivers
// return year as an integer and labels as string or []byte. nil means NULL.
func FactorString(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case []byte:
		s = string(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case int32:
		s = strconv.FormatInt(int64(x), 10)
	case int:
		s = strconv.Itoa(x)
	default:
		s = fmt.Sprint(x)
	}
	return &s
}
