// Package lifecycle holds shared limits for component start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds each fx start or stop hook.
const DefaultTimeout = 15 * time.Second
