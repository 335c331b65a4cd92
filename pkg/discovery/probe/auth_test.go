package probe

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

func hostSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	return signer
}

// startSSHServer serves config on a loopback listener and returns its port
func startSSHServer(t *testing.T, config *ssh.ServerConfig) int {
	t.Helper()
	config.AddHostKey(hostSigner(t))

	listener := listen(t)
	acceptAll(listener, func(conn net.Conn) {
		defer func() {
			_ = conn.Close()
		}()
		serverConn, chans, reqs, err := ssh.NewServerConn(conn, config)
		if err != nil {
			return
		}
		defer func() {
			_ = serverConn.Close()
		}()
		go ssh.DiscardRequests(reqs)
		for ch := range chans {
			_ = ch.Reject(ssh.Prohibited, "test server")
		}
	})
	return listener.Addr().(*net.TCPAddr).Port
}

func TestAuth(t *testing.T) {
	rejectPassword := func(ssh.ConnMetadata, []byte) (*ssh.Permissions, error) {
		return nil, errors.New("denied")
	}
	rejectKey := func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error) {
		return nil, errors.New("denied")
	}

	challengeThenReject := func(_ ssh.ConnMetadata, client ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
		if _, err := client("", "", []string{"Password: "}, []bool{false}); err != nil {
			return nil, err
		}
		return nil, errors.New("denied")
	}
	rejectSilently := func(ssh.ConnMetadata, ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
		return nil, errors.New("denied")
	}

	tests := []struct {
		name   string
		config *ssh.ServerConfig
		want   []string
	}{
		{
			name:   "keyboard-interactive with a challenge",
			config: &ssh.ServerConfig{KeyboardInteractiveCallback: challengeThenReject, PasswordCallback: rejectPassword},
			want:   []string{MethodKeyboardInteractive},
		},
		{
			name:   "keyboard-interactive failing before any challenge",
			config: &ssh.ServerConfig{KeyboardInteractiveCallback: rejectSilently, PasswordCallback: rejectPassword},
			want:   []string{MethodPassword},
		},
		{
			name:   "password only",
			config: &ssh.ServerConfig{PasswordCallback: rejectPassword},
			want:   []string{MethodPassword},
		},
		{
			name:   "publickey only",
			config: &ssh.ServerConfig{PublicKeyCallback: rejectKey},
			want:   []string{MethodPublicKey},
		},
		{
			name:   "publickey and password",
			config: &ssh.ServerConfig{PublicKeyCallback: rejectKey, PasswordCallback: rejectPassword},
			want:   []string{MethodPublicKey, MethodPassword},
		},
		{
			name:   "no client auth",
			config: &ssh.ServerConfig{NoClientAuth: true},
			want:   []string{MethodNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := startSSHServer(t, tt.config)

			methods, err := Auth(context.Background(), "127.0.0.1", port, &AuthConfig{User: "probe", Timeout: 5 * time.Second})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(methods, tt.want) {
				t.Errorf("Auth() = %v, want %v", methods, tt.want)
			}

			offers, err := Offers(context.Background(), "127.0.0.1", port, &AuthConfig{User: "probe", Timeout: 5 * time.Second})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !offers {
				t.Error("expected Offers() to be true")
			}
		})
	}
}

func TestAuthNotSSH(t *testing.T) {
	listener := listen(t)
	acceptAll(listener, func(conn net.Conn) {
		_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		_ = conn.Close()
	})
	port := listener.Addr().(*net.TCPAddr).Port

	methods, err := Auth(context.Background(), "127.0.0.1", port, &AuthConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(methods) != 0 {
		t.Errorf("expected no methods, got %v", methods)
	}
}

func TestAuthClosedPort(t *testing.T) {
	offers, err := Offers(context.Background(), "127.0.0.1", closedPort(t), DefaultAuthConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offers {
		t.Error("expected false for a closed port")
	}
}

func TestAuthInvalidAddress(t *testing.T) {
	_, err := Auth(context.Background(), "999.1.1.1", 22, nil)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

// silentListener accepts connections and never writes to them
func silentListener(t *testing.T) int {
	t.Helper()
	listener := listen(t)
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	acceptAll(listener, func(conn net.Conn) {
		<-done
		_ = conn.Close()
	})
	return listener.Addr().(*net.TCPAddr).Port
}

func TestAuthTimeout(t *testing.T) {
	port := silentListener(t)
	timeout := 300 * time.Millisecond

	started := time.Now()
	offers, err := Offers(context.Background(), "127.0.0.1", port, &AuthConfig{Timeout: timeout})
	elapsed := time.Since(started)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offers {
		t.Error("expected false from a silent server")
	}
	if elapsed < timeout-50*time.Millisecond {
		t.Errorf("returned after %s, before the %s timeout", elapsed, timeout)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("returned after %s, long after the %s timeout", elapsed, timeout)
	}
}

func TestAuthCancelled(t *testing.T) {
	port := silentListener(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	started := time.Now()
	methods, err := Auth(ctx, "127.0.0.1", port, &AuthConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(methods) != 0 {
		t.Errorf("expected no methods, got %v", methods)
	}
	if elapsed := time.Since(started); elapsed > 3*time.Second {
		t.Errorf("cancellation not honoured, returned after %s", elapsed)
	}
}
