package xfer

import (
	"context"
	"errors"

	"go_lan_transfer/blockio"
	"go_lan_transfer/constants"
	"go_lan_transfer/frame"
	"go_lan_transfer/xerr"
)

// ErrPaused is returned by Transmit/Receive when pauseCtx is the context
// that ended the loop. It is not an xerr.Error: pausing is a clean,
// resumable stop, not a failure.
var ErrPaused = errors.New("xfer: paused")

// checkTokens inspects pauseCtx first (checked only at the top of each
// loop iteration) and then cancelCtx (checked around every await).
func checkTokens(pauseCtx, cancelCtx context.Context) error {
	if pauseCtx.Err() != nil {
		return ErrPaused
	}
	if cancelCtx.Err() != nil {
		return xerr.New(xerr.Cancelled, "cancelled")
	}
	return nil
}

// Transmit drives the sending half of a transfer: read blocks from acc and
// send them as Data frames over ch, terminating with an empty
// EndOfTransfer frame sent strictly after the final (possibly short) data
// frame.
func Transmit(pauseCtx, cancelCtx context.Context, ch *frame.Channel, acc *blockio.Accessor) error {
	for {
		if err := checkTokens(pauseCtx, cancelCtx); err != nil {
			return err
		}

		block, err := acc.ReadNextBlock()
		if err != nil {
			return err
		}

		if cancelCtx.Err() != nil {
			return xerr.New(xerr.Cancelled, "cancelled")
		}

		if len(block) == 0 {
			return ch.Send(frame.EndOfTransfer, nil)
		}

		if err := ch.Send(frame.Data, block); err != nil {
			return err
		}

		if len(block) < constants.BlockSize {
			return ch.Send(frame.EndOfTransfer, nil)
		}
	}
}

// Receive drives the receiving half of a transfer: read frames from ch and
// write Data payloads to acc until EndOfTransfer arrives. Any other frame
// type is a fatal protocol error.
func Receive(pauseCtx, cancelCtx context.Context, ch *frame.Channel, acc *blockio.Accessor) error {
	for {
		if err := checkTokens(pauseCtx, cancelCtx); err != nil {
			return err
		}

		msg, err := ch.Receive()
		if err != nil {
			return err
		}

		if cancelCtx.Err() != nil {
			return xerr.New(xerr.Cancelled, "cancelled")
		}

		switch msg.Type {
		case frame.Data:
			if err := acc.WriteNextBlock(msg.Payload); err != nil {
				return err
			}
		case frame.EndOfTransfer:
			return nil
		default:
			return xerr.New(xerr.Protocol, "unexpected message type during streaming: "+msg.Type.String())
		}
	}
}
