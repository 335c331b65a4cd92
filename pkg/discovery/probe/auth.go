package probe

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"golang.org/x/crypto/ssh"
)

// Authentication method names as listed by ssh servers
const (
	MethodNone                = "none"
	MethodPublicKey           = "publickey"
	MethodPassword            = "password"
	MethodKeyboardInteractive = "keyboard-interactive"
	MethodGSSAPIWithMIC       = "gssapi-with-mic"
)

// DefaultProbeUser is the user name sent with the unauthenticated request
const DefaultProbeUser = "find-sshable"

// errListOnly aborts a method callback before any credential is sent
var errListOnly = errors.New("probe: listing methods only")

// AuthConfig tunes the authentication-method probe
type AuthConfig struct {
	// User is sent in the userauth requests. Servers may list methods per user.
	User string
	// Timeout bounds the whole exchange, connect included
	Timeout time.Duration
	// ClientVersion overrides the identification string sent to the server
	ClientVersion string
}

// DefaultAuthConfig returns the configuration used when none is given
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		User:    DefaultProbeUser,
		Timeout: 2 * time.Second,
	}
}

// methodRecorder collects the methods the server lets the client try
type methodRecorder struct {
	mu      sync.Mutex
	methods []string
}

func (r *methodRecorder) add(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.methods {
		if m == method {
			return
		}
	}
	r.methods = append(r.methods, method)
}

func (r *methodRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.methods...)
}

// gssapiRecorder satisfies ssh.GSSAPIClient only far enough to learn that
// the server offers gssapi-with-mic.
type gssapiRecorder struct {
	recorder *methodRecorder
}

func (g gssapiRecorder) InitSecContext(target string, token []byte, isGSSDelegCreds bool) ([]byte, bool, error) {
	g.recorder.add(MethodGSSAPIWithMIC)
	return nil, false, errListOnly
}

func (g gssapiRecorder) GetMIC(micField []byte) ([]byte, error) {
	return nil, errListOnly
}

func (g gssapiRecorder) DeleteSecContext() error {
	return nil
}

// clientConfig builds an ssh client configuration whose auth methods only
// record that the server advertised them.
func (c *AuthConfig) clientConfig(address string, recorder *methodRecorder) *ssh.ClientConfig {
	config := &ssh.ClientConfig{
		User: c.User,
		// publickey without signers is skipped by the client and the next
		// advertised method is tried; the other callbacks end the exchange.
		Auth: []ssh.AuthMethod{
			ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
				recorder.add(MethodPublicKey)
				return nil, nil
			}),
			ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
				recorder.add(MethodKeyboardInteractive)
				return nil, errListOnly
			}),
			ssh.PasswordCallback(func() (string, error) {
				recorder.add(MethodPassword)
				return "", errListOnly
			}),
			ssh.GSSAPIWithMICAuthMethod(gssapiRecorder{recorder: recorder}, address),
		},
		// nothing is authenticated, so there is no host identity to pin
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		BannerCallback: func(message string) error {
			return nil
		},
		Timeout: c.Timeout,
	}
	if c.ClientVersion != "" {
		config.ClientVersion = c.ClientVersion
	}
	return config
}

// Auth performs the ssh version exchange and transport setup against
// address:port and returns the authentication methods the server offers.
// The list holds publickey when offered and the first of
// keyboard-interactive, password and gssapi-with-mic the server advertises.
// A method is only seen when the client gets to attempt it: methods the
// client does not implement, such as hostbased, never appear, and a
// keyboard-interactive handler that fails without sending a challenge is
// skipped in favour of the next method. A server offering nothing else
// then yields an empty list.
// No credentials are ever sent. Protocol failures, timeouts and closed
// connections yield an empty list and a nil error; only a malformed
// address is an error.
func Auth(ctx context.Context, address string, port int, config *AuthConfig) ([]string, error) {
	if config == nil {
		config = DefaultAuthConfig()
	}
	addr, err := hostPort(address, port)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil
	}
	defer func() {
		_ = conn.Close()
	}()

	// bound the handshake by the same deadline and abandon it on cancellation
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	recorder := &methodRecorder{}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config.clientConfig(address, recorder))
	if err == nil {
		// the server accepted the unauthenticated request
		go ssh.DiscardRequests(reqs)
		go func() {
			for ch := range chans {
				_ = ch.Reject(ssh.Prohibited, "probe only")
			}
		}()
		_ = sshConn.Close()
		return []string{MethodNone}, nil
	}

	methods := recorder.list()
	gologger.Debug().Msgf("auth probe %s: methods=%v err=%v", addr, methods, err)
	return methods, nil
}

// Offers reports whether the ssh server at address:port lists at least one
// authentication method.
func Offers(ctx context.Context, address string, port int, config *AuthConfig) (bool, error) {
	methods, err := Auth(ctx, address, port, config)
	if err != nil {
		return false, err
	}
	return len(methods) > 0, nil
}
