package pkg

import "errors"

// Bus errors.
var (
	// ErrMailboxFull indicates that every transaction slot is in flight.
	// It is backpressure: the request was not submitted and may be retried.
	ErrMailboxFull = errors.New("mailbox full")

	// ErrClosed indicates the mailbox, dispatcher or port has been closed.
	ErrClosed = errors.New("closed")

	// ErrTimeout indicates a transfer or wait timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrCancelled indicates a cancelled transfer.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrShortTransfer indicates fewer bytes moved than requested.
	ErrShortTransfer = errors.New("short transfer")

	// ErrOverrun indicates data was dropped because a buffer was full.
	ErrOverrun = errors.New("data overrun")

	// ErrNoData indicates a receive buffer is empty.
	ErrNoData = errors.New("no data available")

	// ErrNACK indicates the addressed device did not acknowledge.
	ErrNACK = errors.New("address not acknowledged")

	// ErrBus indicates a bus-level error reported by the HAL.
	ErrBus = errors.New("bus error")

	// ErrAlreadyRunning indicates the component is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the component is not running.
	ErrNotRunning = errors.New("not running")

	// ErrNotRegistered indicates a serial port handle is no longer registered.
	ErrNotRegistered = errors.New("port not registered")

	// ErrNoResources indicates insufficient resources (e.g., event flag bits).
	ErrNoResources = errors.New("no resources available")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrStopLoop may be returned by a task loop to end the task without error.
	ErrStopLoop = errors.New("stop loop")
)

// TransferStatus represents the completion status of a bus transfer.
type TransferStatus int

// Transfer status values.
const (
	TransferStatusSuccess   TransferStatus = iota // Transfer completed successfully
	TransferStatusError                           // Transfer failed with error
	TransferStatusNACK                            // Address not acknowledged
	TransferStatusTimeout                         // Transfer timed out
	TransferStatusCancelled                       // Transfer was cancelled
	TransferStatusShort                           // Fewer bytes than requested
)

// String returns a string representation of the transfer status.
func (s TransferStatus) String() string {
	switch s {
	case TransferStatusSuccess:
		return "success"
	case TransferStatusError:
		return "error"
	case TransferStatusNACK:
		return "nack"
	case TransferStatusTimeout:
		return "timeout"
	case TransferStatusCancelled:
		return "cancelled"
	case TransferStatusShort:
		return "short"
	default:
		return "unknown"
	}
}

// Error returns the corresponding error for the transfer status.
func (s TransferStatus) Error() error {
	switch s {
	case TransferStatusSuccess:
		return nil
	case TransferStatusNACK:
		return ErrNACK
	case TransferStatusTimeout:
		return ErrTimeout
	case TransferStatusCancelled:
		return ErrCancelled
	case TransferStatusShort:
		return ErrShortTransfer
	default:
		return ErrBus
	}
}

// StatusOf converts an error to a transfer status.
func StatusOf(err error) TransferStatus {
	switch {
	case err == nil:
		return TransferStatusSuccess
	case errors.Is(err, ErrNACK):
		return TransferStatusNACK
	case errors.Is(err, ErrTimeout):
		return TransferStatusTimeout
	case errors.Is(err, ErrCancelled):
		return TransferStatusCancelled
	case errors.Is(err, ErrShortTransfer):
		return TransferStatusShort
	default:
		return TransferStatusError
	}
}
