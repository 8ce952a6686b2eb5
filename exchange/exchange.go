package exchange

import (
	"go_lan_transfer/frame"
	"go_lan_transfer/xerr"
)

// RunSenderExchange drives the sender's half of parameter exchange over
// ch: send password, await verdict, send metadata, await resume point.
func RunSenderExchange(ch *frame.Channel, password string, meta FileMetadata) (resumeBlock int32, err error) {
	if err := ch.Send(frame.Metadata, []byte(password)); err != nil {
		return 0, err
	}

	verdict, err := ch.Receive()
	if err != nil {
		return 0, err
	}
	switch verdict.Type {
	case frame.EndOfTransfer:
		return 0, xerr.New(xerr.InvalidPassword, "receiver rejected password")
	case frame.Metadata:
		// proceed
	default:
		return 0, xerr.New(xerr.Protocol, "unexpected message type awaiting password verdict")
	}

	if err := ch.Send(frame.Metadata, []byte(meta.Name)); err != nil {
		return 0, err
	}
	if err := ch.Send(frame.Metadata, meta.Hash); err != nil {
		return 0, err
	}
	if err := ch.Send(frame.Metadata, encodeInt32(meta.Size)); err != nil {
		return 0, err
	}

	resp, err := ch.Receive()
	if err != nil {
		return 0, err
	}
	switch resp.Type {
	case frame.EndOfTransfer:
		return 0, xerr.New(xerr.RemoteCancelled, "receiver cancelled during resume negotiation")
	case frame.Metadata:
		if len(resp.Payload) != 4 {
			return 0, xerr.New(xerr.Protocol, "malformed resume point payload")
		}
		return decodeInt32(resp.Payload), nil
	default:
		return 0, xerr.New(xerr.Protocol, "unexpected message type awaiting resume point")
	}
}

// Resolver computes the on-disk resume point for an incoming file, given
// its declared metadata. Callers build one around ResolveFile
// (exchange/resolve.go), as session.HandleIncoming does, and inject it here
// so the protocol driver stays independent of the filesystem layer it
// happens to run against.
type Resolver func(meta FileMetadata) (resumeBlock int32, err error)

// RunReceiverExchange drives the receiver's half of parameter exchange:
// await password, verify it, await metadata, resolve the file, reply with
// the resume point.
func RunReceiverExchange(ch *frame.Channel, localPassword string, resolve Resolver) (FileMetadata, int32, error) {
	pwFrame, err := ch.Receive()
	if err != nil {
		return FileMetadata{}, 0, err
	}
	if pwFrame.Type != frame.Metadata {
		return FileMetadata{}, 0, xerr.New(xerr.Protocol, "unexpected message type awaiting password")
	}

	received := string(pwFrame.Payload)
	if localPassword != "" && received != localPassword {
		_ = ch.Send(frame.EndOfTransfer, nil)
		return FileMetadata{}, 0, xerr.New(xerr.InvalidPassword, "sender supplied wrong password")
	}
	if err := ch.Send(frame.Metadata, nil); err != nil {
		return FileMetadata{}, 0, err
	}

	name, err := expectMetadataOrCancel(ch)
	if err != nil {
		return FileMetadata{}, 0, err
	}
	hashFrame, err := ch.Receive()
	if err != nil {
		return FileMetadata{}, 0, err
	}
	if hashFrame.Type != frame.Metadata {
		return FileMetadata{}, 0, xerr.New(xerr.Protocol, "unexpected message type awaiting hash")
	}
	hash := append([]byte{}, hashFrame.Payload...)

	sizeFrame, err := ch.Receive()
	if err != nil {
		return FileMetadata{}, 0, err
	}
	if sizeFrame.Type != frame.Metadata || len(sizeFrame.Payload) != 4 {
		return FileMetadata{}, 0, xerr.New(xerr.Protocol, "unexpected message type or size awaiting file size")
	}
	size := decodeInt32(sizeFrame.Payload)

	meta := FileMetadata{Name: string(name), Hash: hash, Size: size}

	resumeBlock, err := resolve(meta)
	if err != nil {
		return FileMetadata{}, 0, err
	}

	if err := ch.Send(frame.Metadata, encodeInt32(resumeBlock)); err != nil {
		return FileMetadata{}, 0, err
	}

	return meta, resumeBlock, nil
}

// expectMetadataOrCancel reads the first of the three metadata frames,
// translating an EndOfTransfer into RemoteCancelled.
func expectMetadataOrCancel(ch *frame.Channel) ([]byte, error) {
	f, err := ch.Receive()
	if err != nil {
		return nil, err
	}
	switch f.Type {
	case frame.EndOfTransfer:
		return nil, xerr.New(xerr.RemoteCancelled, "sender cancelled during metadata exchange")
	case frame.Metadata:
		return append([]byte{}, f.Payload...), nil
	default:
		return nil, xerr.New(xerr.Protocol, "unexpected message type awaiting metadata")
	}
}
