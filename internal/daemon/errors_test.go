package daemon

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"

	"github.com/muurk/backlight/internal/protocol"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantSubtype   NetworkErrorSubtype
		wantRetryable bool
	}{
		{
			name: "timeout",
			err: &url.Error{Op: "Get", URL: "http://10.0.0.2:7878", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: &timeoutError{},
			}},
			wantType:      ErrTypeTimeout,
			wantSubtype:   NetworkErrorTimeout,
			wantRetryable: true,
		},
		{
			name: "connection refused",
			err: &url.Error{Op: "Get", URL: "http://10.0.0.2:7878", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED,
			}},
			wantType:      ErrTypeConnectionRefused,
			wantSubtype:   NetworkErrorConnectionRefused,
			wantRetryable: true,
		},
		{
			name:          "dns",
			err:           &net.DNSError{Err: "no such host", Name: "lights.local", IsNotFound: true},
			wantType:      ErrTypeDNS,
			wantSubtype:   NetworkErrorDNS,
			wantRetryable: false,
		},
		{
			name: "host unreachable",
			err: &url.Error{Op: "Get", URL: "http://10.0.0.2:7878", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH,
			}},
			wantType:      ErrTypeNetwork,
			wantSubtype:   NetworkErrorHostUnreachable,
			wantRetryable: true,
		},
		{
			name: "network unreachable",
			err: &net.OpError{
				Op: "dial", Net: "tcp", Err: syscall.ENETUNREACH,
			},
			wantType:      ErrTypeNetwork,
			wantSubtype:   NetworkErrorNetworkUnreachable,
			wantRetryable: true,
		},
		{
			name:          "generic",
			err:           errors.New("broken pipe"),
			wantType:      ErrTypeNetwork,
			wantSubtype:   NetworkErrorGeneral,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := ClassifyNetworkError(tt.err, "10.0.0.2")
			if devErr == nil {
				t.Fatal("Expected DeviceError, got nil")
			}
			if devErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", devErr.Type, tt.wantType)
			}
			if devErr.NetworkSubtype != tt.wantSubtype {
				t.Errorf("NetworkSubtype = %v, want %v", devErr.NetworkSubtype, tt.wantSubtype)
			}
			if devErr.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", devErr.Retryable, tt.wantRetryable)
			}
			if devErr.Address != "10.0.0.2" {
				t.Errorf("Address = %q, want 10.0.0.2", devErr.Address)
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", &DeviceError{Type: ErrTypeTimeout, Retryable: true}, true},
		{"auth", NewAuthError("nope"), false},
		{"server error", NewHTTPError(503, "unavailable"), true},
		{"client error", NewHTTPError(400, "bad request"), false},
		{"board", NewBoardError(4), false},
		{"protocol", NewProtocolError("garbage", nil), false},
		{"wrapped", fmt.Errorf("read: %w", NewHTTPError(500, "boom")), true},
		{"plain", errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	wrappedBoard := &SyncError{Op: "write", Board: 2, Err: NewBoardError(2)}

	if !IsBoardError(wrappedBoard) {
		t.Error("IsBoardError should see through SyncError")
	}
	if !IsNetworkError(NewNetworkError("dial", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED})) {
		t.Error("connection refused should be a network error")
	}
	if IsNetworkError(NewBoardError(0)) {
		t.Error("board error is not a network error")
	}
	if !IsAuthError(NewAuthError("x")) {
		t.Error("IsAuthError should match auth errors")
	}
	if !IsProtocolError(NewProtocolError("x", nil)) {
		t.Error("IsProtocolError should match protocol errors")
	}
}

func TestRemoteError(t *testing.T) {
	if err := remoteError(3, protocol.CodeUnknownBoard, "no board 3"); err.Type != ErrTypeBoard || err.Board != 3 {
		t.Errorf("unknown_board → %+v, want board error for 3", err)
	}
	if err := remoteError(0, protocol.CodeBadRequest, "bad"); err.Type != ErrTypeProtocol {
		t.Errorf("bad_request → %v, want protocol error", err.Type)
	}
	if err := remoteError(0, protocol.CodeInternal, "disk full"); err.Type != ErrTypeUnknown || err.Message != "disk full" {
		t.Errorf("internal → %+v, want unknown error", err)
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&DeviceError{Type: ErrTypeTimeout}, "Daemon not responding (timeout)"},
		{&DeviceError{Type: ErrTypeConnectionRefused}, "Daemon refused connection - is it running?"},
		{&DeviceError{Type: ErrTypeDNS}, "Cannot resolve daemon hostname"},
		{NewAuthError("x"), "Authentication failed - check credentials"},
		{&DeviceError{Type: ErrTypeNetwork, NetworkSubtype: NetworkErrorHostUnreachable}, "Daemon unreachable - check network connection"},
		{&DeviceError{Type: ErrTypeNetwork}, "Network error - check connection"},
		{NewHTTPError(502, "x"), "Daemon error (HTTP 502)"},
		{NewProtocolError("x", nil), "Unexpected reply from daemon"},
		{NewBoardError(7), "board 7 does not exist"},
		{errors.New("plain failure"), "plain failure"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := GetShortErrorMessage(tt.err); got != tt.want {
				t.Errorf("GetShortErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"timeout", &DeviceError{Type: ErrTypeTimeout}, "sync_timeout_ms"},
		{"refused", &DeviceError{Type: ErrTypeConnectionRefused}, "backlight-server server"},
		{"auth", NewAuthError("x"), "BACKLIGHT_USERNAME"},
		{"unreachable", &DeviceError{Type: ErrTypeNetwork, NetworkSubtype: NetworkErrorHostUnreachable, Address: "10.0.0.2"}, "ping 10.0.0.2"},
		{"server error", NewHTTPError(500, "x"), "Restart the daemon"},
		{"client error", NewHTTPError(400, "x"), "HTTP error 400"},
		{"board", NewBoardError(1), "backlight-cfg boards"},
		{"not a device error", errors.New("x"), "unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetTroubleshootingHint(tt.err); !strings.Contains(got, tt.contains) {
				t.Errorf("GetTroubleshootingHint() = %q, want it to contain %q", got, tt.contains)
			}
		})
	}
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		expected  string
	}{
		{ErrTypeNetwork, "Network Error"},
		{ErrTypeTimeout, "Timeout"},
		{ErrTypeConnectionRefused, "Connection Refused"},
		{ErrTypeDNS, "DNS Error"},
		{ErrTypeAuth, "Authentication Error"},
		{ErrTypeHTTP, "HTTP Error"},
		{ErrTypeProtocol, "Protocol Error"},
		{ErrTypeBoard, "Unknown Board"},
		{ErrTypeUnknown, "Unknown Error"},
		{ErrorType(99), "ErrorType(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.errorType.String(); got != tt.expected {
				t.Errorf("ErrorType.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSyncError(t *testing.T) {
	cause := errors.New("socket closed")
	err := &SyncError{Op: "write", Board: 1, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("SyncError should unwrap to its cause")
	}
	if got := err.Error(); got != "daemon write on board 1 failed: socket closed" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDeviceErrorFormat(t *testing.T) {
	err := NewProtocolError("bad reply", errors.New("unexpected EOF"))
	if got := err.Error(); got != "Protocol Error: bad reply (caused by: unexpected EOF)" {
		t.Errorf("Error() = %q", got)
	}
	if got := NewBoardError(2).Error(); got != "Unknown Board: board 2 does not exist" {
		t.Errorf("Error() = %q", got)
	}
}

// timeoutError is a mock error that implements timeout behavior
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
