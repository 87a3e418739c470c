// Package mailtest runs in-process IMAP and SMTP servers for tests.
package mailtest

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend"
	"github.com/emersion/go-imap/backend/memory"
	imapserver "github.com/emersion/go-imap/server"
	"github.com/emersion/go-smtp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailbox-adapter/internal/config"
	"github.com/brandon/mailbox-adapter/internal/email"
)

// Credentials accepted by both servers
const (
	Username = "username"
	Password = "password"
)

// IMAPServer is an IMAP server over the go-imap memory backend.
// The backend starts with an INBOX holding a single seen message with UID 6.
type IMAPServer struct {
	Host string
	Port int

	user backend.User
}

// StartIMAP starts an IMAP server and creates the given extra mailboxes
func StartIMAP(t testing.TB, mailboxes ...string) *IMAPServer {
	t.Helper()

	be := memory.New()
	user, err := be.Login(nil, Username, Password)
	require.NoError(t, err)
	for _, name := range mailboxes {
		require.NoError(t, user.CreateMailbox(name))
	}

	s := imapserver.New(be)
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l) //nolint:errcheck
	t.Cleanup(func() { s.Close() })

	host, port := splitAddr(t, l.Addr().String())
	return &IMAPServer{Host: host, Port: port, user: user}
}

// Mailbox returns a backend mailbox for seeding and inspection
func (s *IMAPServer) Mailbox(t testing.TB, name string) backend.Mailbox {
	t.Helper()
	mbox, err := s.user.GetMailbox(name)
	require.NoError(t, err)
	return mbox
}

// Seed appends raw to the named mailbox directly in the backend
func (s *IMAPServer) Seed(t testing.TB, name string, flags []string, raw string) {
	t.Helper()
	mbox := s.Mailbox(t, name)
	require.NoError(t, mbox.CreateMessage(flags, time.Now(), bytes.NewBufferString(raw)))
}

// Transport returns an IMAP client for the server that logs nothing
func (s *IMAPServer) Transport(t testing.TB) *email.IMAPClient {
	t.Helper()
	c, err := email.NewIMAPClient(Account("test", s, nil))
	require.NoError(t, err)
	c.SetLogger(Logger())
	t.Cleanup(func() { c.Close() })
	return c
}

// Logger returns a logger that discards its output
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Delivery is one message accepted by the SMTP server
type Delivery struct {
	From string
	To   []string
	Data []byte
}

// SMTPServer is an SMTP server recording every delivery
type SMTPServer struct {
	Host string
	Port int

	mu         sync.Mutex
	deliveries []Delivery
}

// StartSMTP starts an SMTP server that accepts PLAIN auth over plain text
func StartSMTP(t testing.TB) *SMTPServer {
	t.Helper()

	rec := &SMTPServer{}
	s := smtp.NewServer(&smtpBackend{server: rec})
	s.Domain = "localhost"
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l) //nolint:errcheck
	t.Cleanup(func() { s.Close() })

	rec.Host, rec.Port = splitAddr(t, l.Addr().String())
	return rec
}

// Deliveries returns the messages accepted so far
func (s *SMTPServer) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}

func (s *SMTPServer) record(d Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, d)
}

// Account returns a plain-text account config pointing at the servers.
// Either server may be nil.
func Account(name string, imapServer *IMAPServer, smtpServer *SMTPServer) *config.AccountConfig {
	cfg := &config.AccountConfig{
		Name:         name,
		IMAPUsername: Username,
		IMAPPassword: Password,
		IMAPSecurity: config.SecurityNone,
		SMTPUsername: Username,
		SMTPPassword: Password,
		SMTPSecurity: config.SecurityNone,
		DraftsFolder: "Drafts",
		SentFolder:   "Sent",
	}
	if imapServer != nil {
		cfg.IMAPHost, cfg.IMAPPort = imapServer.Host, imapServer.Port
	}
	if smtpServer != nil {
		cfg.SMTPHost, cfg.SMTPPort = smtpServer.Host, smtpServer.Port
	}
	return cfg
}

func splitAddr(t testing.TB, addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

type smtpBackend struct {
	server *SMTPServer
}

func (b *smtpBackend) Login(_ *smtp.ConnectionState, username, password string) (smtp.Session, error) {
	if username != Username || password != Password {
		return nil, errors.New("invalid credentials")
	}
	return &smtpSession{server: b.server}, nil
}

func (b *smtpBackend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return nil, smtp.ErrAuthRequired
}

type smtpSession struct {
	server  *SMTPServer
	current Delivery
}

func (s *smtpSession) Mail(from string, _ smtp.MailOptions) error {
	s.current = Delivery{From: from}
	return nil
}

func (s *smtpSession) Rcpt(to string) error {
	s.current.To = append(s.current.To, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.Data = data
	s.server.record(s.current)
	s.current = Delivery{}
	return nil
}

func (s *smtpSession) Reset() {
	s.current = Delivery{}
}

func (s *smtpSession) Logout() error {
	return nil
}
