//go:build !js

package collab

import "context"

func (c *Client) ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}
