package upstream

import (
	"context"
	"errors"
	"testing"
)

func TestTransportError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *TransportError
		want string
	}{
		{
			name: "connection failed",
			err: &TransportError{
				Kind: KindConnectionFailed,
				URL:  "https://example.com/",
				Err:  errors.New("dial tcp: no such host"),
			},
			want: "upstream connection-failed for https://example.com/: dial tcp: no such host",
		},
		{
			name: "failed with status",
			err: &TransportError{
				Kind:       KindFailed,
				URL:        "https://example.com/loop",
				StatusCode: 302,
				Err:        errors.New("stopped after 10 redirects"),
			},
			want: "upstream failed (status 302) for https://example.com/loop: stopped after 10 redirects",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	err := &TransportError{Kind: KindConnectionFailed, Err: context.DeadlineExceeded}

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is should see the wrapped error")
	}

	var te *TransportError
	if !errors.As(error(err), &te) || te.Kind != KindConnectionFailed {
		t.Error("errors.As should extract the TransportError")
	}
}

func TestIsTimeout(t *testing.T) {
	if !isTimeout(context.DeadlineExceeded) {
		t.Error("isTimeout(DeadlineExceeded) = false")
	}
	if isTimeout(errors.New("boom")) {
		t.Error("isTimeout(plain error) = true")
	}
}
