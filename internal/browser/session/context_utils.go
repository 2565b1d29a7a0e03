package session

import (
	"context"
)

// CombineContext derives a context from primary that is also canceled when secondary is done.
// Values and deadline come from primary, which for chromedp carries the tab. secondary is
// the caller's operational context.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
