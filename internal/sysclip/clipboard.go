// Package sysclip writes share text to the host clipboard for command-line
// use.
package sysclip

import (
	"context"
	"fmt"

	"bubblepop/internal/sharing"

	"github.com/atotto/clipboard"
)

// Clipboard implements sharing.Clipboard over the operating system
// clipboard.
type Clipboard struct {
	write       func(string) error
	unsupported bool
}

func New() *Clipboard {
	return &Clipboard{write: clipboard.WriteAll, unsupported: clipboard.Unsupported}
}

func (c *Clipboard) WriteText(ctx context.Context, text string) error {
	if c.unsupported {
		return sharing.ErrClipboardUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.write(text); err != nil {
		return fmt.Errorf("writing clipboard: %w", err)
	}
	return nil
}
