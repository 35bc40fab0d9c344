package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ensure interface is implemented
var _ SourceFileSystem = (*SFTPFileSystem)(nil)

// SFTPConfig holds the connection settings for an SFTP source.
type SFTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// PrivateKeyPath points to a PEM-encoded key; takes precedence over
	// Password when both are set.
	PrivateKeyPath string
	// KnownHostKey is the expected server public key in authorized_keys
	// format. When empty the host key is not verified.
	KnownHostKey string
	// Prefetch enables pipelined read-ahead for downloads.
	Prefetch bool
	// MaxConcurrentRequests bounds the number of outstanding read requests
	// per file when Prefetch is enabled. Zero means the client default.
	MaxConcurrentRequests int
	// DialTimeout bounds connection establishment. Zero means no timeout.
	DialTimeout time.Duration
}

// SFTPFileSystem implements SourceFileSystem over an SFTP connection.
type SFTPFileSystem struct {
	conn   *ssh.Client
	client *sftp.Client
}

// NewSFTPFileSystem dials the SFTP server described by cfg.
func NewSFTPFileSystem(cfg SFTPConfig) (*SFTPFileSystem, error) {
	auth, err := buildAuthMethods(cfg)
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostKey != "" {
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(cfg.KnownHostKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse known host key: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(key)
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.DialTimeout,
	}

	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", cfg.Host, port), sshCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s:%d: %w", cfg.Host, port, err)
	}

	opts := []sftp.ClientOption{
		sftp.UseConcurrentReads(cfg.Prefetch),
	}
	if cfg.MaxConcurrentRequests > 0 {
		opts = append(opts, sftp.MaxConcurrentRequestsPerFile(cfg.MaxConcurrentRequests))
	}

	client, err := sftp.NewClient(conn, opts...)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start sftp subsystem: %w", err)
	}

	return &SFTPFileSystem{conn: conn, client: client}, nil
}

func buildAuthMethods(cfg SFTPConfig) ([]ssh.AuthMethod, error) {
	var auth []ssh.AuthMethod

	if cfg.PrivateKeyPath != "" {
		pem, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	if len(auth) == 0 {
		return nil, fmt.Errorf("sftp: no authentication method configured for user %q", cfg.User)
	}

	return auth, nil
}

// Stat returns the FileInfo for the given remote path.
func (s *SFTPFileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	info, err := s.client.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sftp stat %q: %w", path, err)
	}
	return info, nil
}

// ListTree walks the remote tree under basePath and returns files matching
// the prefix/delimiter constraints, in walk order.
func (s *SFTPFileSystem) ListTree(ctx context.Context, basePath, prefix, delimiter string) ([]string, error) {
	var files []string

	walker := s.client.Walk(basePath)
	for walker.Step() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := walker.Err(); err != nil {
			return nil, fmt.Errorf("sftp walk %q: %w", basePath, err)
		}
		if walker.Stat().IsDir() {
			continue
		}
		if MatchTreeEntry(walker.Path(), prefix, delimiter) {
			files = append(files, walker.Path())
		}
	}

	return files, nil
}

// MatchTreeEntry reports whether a file path satisfies the glob constraints
// derived from a wildcard source path: the path must start with prefix and,
// when delimiter is non-empty, end with delimiter.
func MatchTreeEntry(path, prefix, delimiter string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return delimiter == "" || strings.HasSuffix(path, delimiter)
}

// RetrieveFile downloads remotePath into localPath. With prefetch enabled the
// transfer uses concurrent read requests against the server.
func (s *SFTPFileSystem) RetrieveFile(ctx context.Context, remotePath, localPath string, prefetch bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	src, err := s.client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("sftp open %q: %w", remotePath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", localPath, err)
	}

	// WriteTo issues pipelined reads when the client allows concurrent
	// reads; a plain copy keeps requests strictly sequential.
	if prefetch {
		_, err = src.WriteTo(dst)
	} else {
		_, err = io.Copy(dst, struct{ io.Reader }{src})
	}
	if err != nil {
		dst.Close()
		return fmt.Errorf("sftp retrieve %q: %w", remotePath, err)
	}

	return dst.Close()
}

// OpenReadStream opens the remote file for streaming reads.
func (s *SFTPFileSystem) OpenReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := s.client.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sftp open %q: %w", path, err)
	}
	return f, nil
}

// DeleteFile removes the remote file.
func (s *SFTPFileSystem) DeleteFile(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := s.client.Remove(path); err != nil {
		return fmt.Errorf("sftp remove %q: %w", path, err)
	}
	return nil
}

// Close shuts down the SFTP session and the underlying SSH connection.
func (s *SFTPFileSystem) Close() error {
	err := s.client.Close()
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
