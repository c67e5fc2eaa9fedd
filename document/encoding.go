package document

import (
	"context"
	"fmt"

	"github.com/iw2rmb/quire/internal/textenc"
)

type encodingState struct {
	content   string // as reported by the store
	preferred string // user override
}

func (e encodingState) effective() string {
	switch {
	case e.preferred != "":
		return e.preferred
	case e.content != "":
		return e.content
	default:
		return textenc.UTF8
	}
}

// adoptEncoding records the store's encoding and announces a change of the
// effective one.
func (c *Controller) adoptEncoding(name string) {
	if name == "" {
		return
	}
	before := c.enc.effective()
	c.enc.content = name
	if after := c.enc.effective(); after != before {
		c.emit(Event{Kind: EventEncodingChanged, Version: c.version.current(), Encoding: after})
	}
}

// SetEncoding changes the document encoding. In EncodingEncode mode the
// current text is re-persisted in the new encoding, immediately unless the
// document is in conflict mode. In EncodingDecode mode the stored bytes are
// re-read; this fails with ErrSaveFirst while the document is dirty.
// Setting the encoding already in effect does nothing.
func (c *Controller) SetEncoding(ctx context.Context, name string, mode EncodingMode) error {
	canon, err := textenc.Canonical(name)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}

	var op *Operation
	err = c.loop.call(ctx, func() {
		if c.disposed || canon == c.enc.effective() {
			op = completedOperation(nil)
			return
		}
		switch mode {
		case EncodingDecode:
			if c.dirty.dirty {
				op = completedOperation(ErrSaveFirst)
				return
			}
			c.setPreferredEncoding(canon)
			if !c.resolved {
				op = completedOperation(nil)
				return
			}
			op = newOperation()
			c.whenSettled(func() {
				if c.disposed || c.dirty.dirty {
					op.complete(nil)
					return
				}
				c.startLoad(ctx, true, func(_ bool, err error) error {
					if err != nil {
						c.handleError(ctx, err)
					}
					return err
				}).chain(op)
			}, op)
		default:
			c.setPreferredEncoding(canon)
			if !c.dirty.dirty {
				c.version.advance()
				c.markDirty()
			}
			if c.guard.conflictMode {
				op = completedOperation(nil)
				return
			}
			c.cancelAutosave()
			op = c.attemptSave(c.version.current(), saveRequest{ctx: ctx, overwriteEncoding: true, opts: SaveOptions{Reason: "encoding"}})
		}
	})
	if err != nil {
		return ignoreDisposed(err)
	}
	return op.Wait(ctx)
}

func (c *Controller) setPreferredEncoding(canon string) {
	c.enc.preferred = canon
	c.log.Debug("encoding changed", "encoding", canon)
	c.emit(Event{Kind: EventEncodingChanged, Version: c.version.current(), Encoding: canon})
}
