package xfer

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_lan_transfer/blockio"
	"go_lan_transfer/constants"
	"go_lan_transfer/frame"
)

func TestTransferCompletesAndCallsOnTerminal(t *testing.T) {
	senderConn, receiverConn := net.Pipe()
	senderCh := frame.New(senderConn, nil)
	receiverCh := frame.New(receiverConn, nil)

	data := make([]byte, constants.BlockSize+10)
	srcAcc := blockio.Open(&memFile{data: data}, int32(len(data)), nil)
	dstAcc := blockio.Open(&memFile{}, int32(len(data)), nil)

	var mu sync.Mutex
	var terminalCount int
	onTerminal := func(tr *Transfer) {
		mu.Lock()
		terminalCount++
		mu.Unlock()
	}

	tx := New(Out, senderCh, srcAcc, nil, onTerminal, nil)
	rx := New(In, receiverCh, dstAcc, nil, onTerminal, nil)

	require.NoError(t, tx.Run())
	require.NoError(t, rx.Run())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return terminalCount == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, Completed, tx.State())
	assert.Equal(t, Completed, rx.State())
}

func TestTransferPauseThenResume(t *testing.T) {
	senderConn, receiverConn := net.Pipe()
	senderCh := frame.New(senderConn, nil)
	receiverCh := frame.New(receiverConn, nil)

	data := make([]byte, constants.BlockSize*3)
	srcAcc := blockio.Open(&memFile{data: data}, int32(len(data)), nil)
	dstAcc := blockio.Open(&memFile{}, int32(len(data)), nil)

	rxDone := make(chan struct{})
	tx := New(Out, senderCh, srcAcc, nil, func(*Transfer) {}, nil)
	rx := New(In, receiverCh, dstAcc, nil, func(*Transfer) { close(rxDone) }, nil)

	require.NoError(t, rx.Run())
	rx.Pause()

	require.Eventually(t, func() bool {
		return rx.State() == Paused
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, rx.Run())
	require.NoError(t, tx.Run())

	select {
	case <-rxDone:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver never reached a terminal state")
	}
	assert.Equal(t, Completed, rx.State())
}

func TestTransferCancelIsTerminalEvenWhilePaused(t *testing.T) {
	_, receiverConn := net.Pipe()
	receiverCh := frame.New(receiverConn, nil)
	dstAcc := blockio.Open(&memFile{}, 0, nil)

	called := make(chan struct{}, 1)
	rx := New(In, receiverCh, dstAcc, nil, func(*Transfer) { called <- struct{}{} }, nil)

	require.NoError(t, rx.Run())
	rx.Pause()
	require.Eventually(t, func() bool { return rx.State() == Paused }, time.Second, 5*time.Millisecond)

	rx.Cancel()
	assert.Equal(t, Cancelled, rx.State())
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("onTerminal was never called")
	}
}
