//go:build js

package collab

import "context"

// The browser answers pings itself and exposes no API for sending them.
func (c *Client) ping(context.Context) error { return nil }
