package daemon

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/muurk/backlight/internal/protocol"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the daemon refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeAuth indicates the daemon rejected our credentials
	ErrTypeAuth
	// ErrTypeHTTP indicates an unexpected HTTP status
	ErrTypeHTTP
	// ErrTypeProtocol indicates a malformed or unexpected message
	ErrTypeProtocol
	// ErrTypeBoard indicates the board index does not exist
	ErrTypeBoard
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeBoard:
		return "Unknown Board"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents an error that occurred while talking to a daemon
type DeviceError struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (if applicable)
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Address        string              // Daemon address (for context)
	Board          int                 // Board index (ErrTypeBoard only)
	Retryable      bool                // Whether the error is retryable
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error and returns a more specific error type
func ClassifyNetworkError(err error, address string) *DeviceError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &DeviceError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Address:        address,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Address:        address,
			Retryable:      false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &DeviceError{
				Type:           ErrTypeConnectionRefused,
				Message:        "Daemon refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Address:        address,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Address:        address,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Address:        address,
				Retryable:      true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, address)
	}

	return &DeviceError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Address:        address,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *DeviceError {
	classified := ClassifyNetworkError(err, "")
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &DeviceError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
	}
}

// NewHTTPError creates an HTTP-level error. Server errors are retryable.
func NewHTTPError(statusCode int, message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewProtocolError creates an error for malformed or unexpected replies
func NewProtocolError(message string, err error) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeProtocol,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewBoardError reports a board index the daemon does not have
func NewBoardError(board int) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeBoard,
		Message:    fmt.Sprintf("board %d does not exist", board),
		StatusCode: http.StatusNotFound,
		Board:      board,
		Retryable:  false,
	}
}

// remoteError converts an error reported by the daemon into a DeviceError.
func remoteError(board int, code, message string) *DeviceError {
	switch code {
	case protocol.CodeUnknownBoard:
		e := NewBoardError(board)
		e.Message = message
		return e
	case protocol.CodeBadRequest:
		return NewProtocolError(message, nil)
	default:
		return &DeviceError{Type: ErrTypeUnknown, Message: message}
	}
}

func asDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr, true
	}
	return nil, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		return devErr.Type == ErrTypeNetwork ||
			devErr.Type == ErrTypeTimeout ||
			devErr.Type == ErrTypeConnectionRefused ||
			devErr.Type == ErrTypeDNS
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		return devErr.Type == ErrTypeAuth
	}
	return false
}

// IsBoardError checks if an error reports an unknown board
func IsBoardError(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		return devErr.Type == ErrTypeBoard
	}
	return false
}

// IsProtocolError checks if an error is a protocol error
func IsProtocolError(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		return devErr.Type == ErrTypeProtocol
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		return devErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The daemon did not respond in time.",
			"Troubleshooting:",
			"  • Check that backlight-server is running",
			"  • Try increasing preferences.sync_timeout_ms",
			"  • Check the network path to the daemon",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The daemon refused the connection.",
			"Troubleshooting:",
			"  • Start the daemon: backlight-server server",
			"  • Verify the port number (default is 7878)",
			"  • Try --offline to use an in-memory daemon",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the daemon hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of hostname",
			"  • Run 'backlight-cfg scan' to discover daemons",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"Authentication failed.",
			"Troubleshooting:",
			"  • Check the daemon's basic auth credentials",
			"  • Set BACKLIGHT_USERNAME and BACKLIGHT_PASSWORD",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}

		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The daemon host is not reachable.",
				"Troubleshooting:",
				"  • Verify the daemon address is correct",
				"  • Check that you're on the same network as the daemon")
			if devErr.Address != "" {
				hint = append(hint, "  • Try pinging the host: ping "+devErr.Address)
			}

		case NetworkErrorNetworkUnreachable:
			hint = append(hint, "Your computer cannot reach the daemon's network.",
				"Troubleshooting:",
				"  • Check your network adapter settings")

		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the daemon is running")
		}

		return strings.Join(hint, "\n")

	case ErrTypeHTTP:
		if devErr.StatusCode >= 500 {
			return strings.Join([]string{
				fmt.Sprintf("The daemon returned an error (HTTP %d).", devErr.StatusCode),
				"Troubleshooting:",
				"  • Check the daemon logs (BACKLIGHT_LOG_LEVEL=debug)",
				"  • Restart the daemon",
			}, "\n")
		}
		return fmt.Sprintf("The daemon returned HTTP error %d. Check the request parameters.", devErr.StatusCode)

	case ErrTypeProtocol:
		return strings.Join([]string{
			"The daemon sent a reply we could not understand.",
			"Troubleshooting:",
			"  • Check that the daemon and backlight-cfg versions match",
			"  • Try the other transport (--transport http|ws)",
		}, "\n")

	case ErrTypeBoard:
		return "The daemon has no such board. Run 'backlight-cfg boards' to list them."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Daemon not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Daemon refused connection - is it running?"
	case ErrTypeDNS:
		return "Cannot resolve daemon hostname"
	case ErrTypeAuth:
		return "Authentication failed - check credentials"
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Daemon unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		return fmt.Sprintf("Daemon error (HTTP %d)", devErr.StatusCode)
	case ErrTypeProtocol:
		return "Unexpected reply from daemon"
	case ErrTypeBoard:
		return devErr.Message
	default:
		return devErr.Message
	}
}

// SyncError wraps a failed daemon read or write made on behalf of the
// palette. It is never fatal.
type SyncError struct {
	Op    string // "read" or "write"
	Board int
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("daemon %s on board %d failed: %v", e.Op, e.Board, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
