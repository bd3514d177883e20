package df1comm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTransactionTableWaitSuccess(t *testing.T) {
	table := newTransactionTable()
	table.reset(5)
	go func() {
		time.Sleep(5 * time.Millisecond)
		table.markResponded(5, []byte{1, 2, 3}, false)
	}()
	frame, code := table.wait(5, 100)
	require.Equal(t, CodeSuccess, code)
	require.Equal(t, []byte{1, 2, 3}, frame)
}

func TestTransactionTableWaitChecksumError(t *testing.T) {
	table := newTransactionTable()
	table.reset(9)
	go func() {
		table.markResponded(9, []byte{0xFF}, true)
	}()
	_, code := table.wait(9, 100)
	require.Equal(t, CodeChecksumOnRecvd, code)
}

func TestTransactionTableWaitTimeout(t *testing.T) {
	table := newTransactionTable()
	table.reset(1)
	_, code := table.wait(1, 2)
	require.Equal(t, CodeTimeout, code)
}

func TestTransactionTableResetIsolatesSlots(t *testing.T) {
	table := newTransactionTable()
	table.reset(3)
	table.markResponded(3, []byte{0x42}, false)
	table.reset(3) // a fresh request reuses the same low byte
	frame, code := table.wait(3, 2)
	require.Equal(t, CodeTimeout, code)
	require.Nil(t, frame)
}
