package kaspa

import "time"

// clockNowMS is indirected so tests can control TTL expiry and
// lock-expiry without sleeping.
var clockNowMS = func() int64 {
	return time.Now().UnixMilli()
}

func nowMS() int64 {
	return clockNowMS()
}
