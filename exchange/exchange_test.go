package exchange

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_lan_transfer/frame"
	"go_lan_transfer/xerr"
)

func pipeChannels() (*frame.Channel, *frame.Channel) {
	a, b := net.Pipe()
	return frame.New(a, nil), frame.New(b, nil)
}

func TestSenderReceiverExchangeRoundTrip(t *testing.T) {
	senderCh, receiverCh := pipeChannels()
	meta := FileMetadata{Name: "report.pdf", Hash: []byte("abc123"), Size: 4096}

	resolve := func(m FileMetadata) (int32, error) {
		assert.Equal(t, meta, m)
		return 7, nil
	}

	senderResume := make(chan int32, 1)
	senderErr := make(chan error, 1)
	go func() {
		resume, err := RunSenderExchange(senderCh, "secret", meta)
		senderResume <- resume
		senderErr <- err
	}()

	gotMeta, receiverResume, err := RunReceiverExchange(receiverCh, "secret", resolve)
	require.NoError(t, err)
	assert.Equal(t, meta.Name, gotMeta.Name)
	assert.Equal(t, int32(7), receiverResume)

	require.NoError(t, <-senderErr)
	assert.Equal(t, int32(7), <-senderResume)
}

func TestWrongPasswordIsRejectedOnBothSides(t *testing.T) {
	senderCh, receiverCh := pipeChannels()
	meta := FileMetadata{Name: "f.bin", Hash: []byte("h"), Size: 1}

	senderErr := make(chan error, 1)
	go func() {
		_, err := RunSenderExchange(senderCh, "wrong", meta)
		senderErr <- err
	}()

	_, _, err := RunReceiverExchange(receiverCh, "correct", func(FileMetadata) (int32, error) {
		t.Fatal("resolve should not be called on password mismatch")
		return 0, nil
	})
	assert.True(t, xerr.Is(err, xerr.InvalidPassword))
	assert.True(t, xerr.Is(<-senderErr, xerr.InvalidPassword))
}

func TestEmptyLocalPasswordAcceptsAnything(t *testing.T) {
	senderCh, receiverCh := pipeChannels()
	meta := FileMetadata{Name: "f.bin", Hash: []byte("h"), Size: 1}

	senderErr := make(chan error, 1)
	go func() {
		_, err := RunSenderExchange(senderCh, "anything-at-all", meta)
		senderErr <- err
	}()

	_, resume, err := RunReceiverExchange(receiverCh, "", func(FileMetadata) (int32, error) {
		return 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), resume)
	require.NoError(t, <-senderErr)
}

func TestResolverErrorPropagatesToReceiverCall(t *testing.T) {
	senderCh, receiverCh := pipeChannels()
	meta := FileMetadata{Name: "f.bin", Hash: []byte("h"), Size: 1}
	boom := xerr.New(xerr.Io, "disk full")

	go func() {
		_, _ = RunSenderExchange(senderCh, "", meta)
	}()

	_, _, err := RunReceiverExchange(receiverCh, "", func(FileMetadata) (int32, error) {
		return 0, boom
	})
	assert.True(t, xerr.Is(err, xerr.Io))
}
