package email

import (
	"crypto/tls"
	"fmt"
	"io"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/internal/config"
)

// SMTPClient wraps an SMTP client
type SMTPClient struct {
	config *config.AccountConfig
	conn   *Lazy[*smtp.Client]
	logger *logrus.Logger
}

// NewSMTPClient creates a new SMTP client (does not connect immediately)
func NewSMTPClient(cfg *config.AccountConfig) (*SMTPClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("account config is required")
	}
	c := &SMTPClient{
		config: cfg,
		logger: logrus.New(),
	}
	c.conn = NewLazy(c.dial)
	return c, nil
}

// dial opens and authenticates a new submission session
func (c *SMTPClient) dial() (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.config.SMTPHost, c.config.SMTPPort)
	tlsConfig := &tls.Config{
		ServerName: c.config.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}

	var (
		cl  *smtp.Client
		err error
	)
	switch c.config.SMTPSecurity {
	case config.SecurityNone, config.SecurityStartTLS:
		cl, err = smtp.Dial(addr)
	default:
		cl, err = smtp.DialTLS(addr, tlsConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	if c.config.SMTPSecurity == config.SecurityStartTLS {
		if err := cl.StartTLS(tlsConfig); err != nil {
			cl.Close()
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if c.config.SMTPPassword != "" {
		auth := sasl.NewPlainClient("", c.config.SMTPUsername, c.config.SMTPPassword)
		if err := cl.Auth(auth); err != nil {
			cl.Close()
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	c.logger.WithField("account", c.config.Name).Info("Connected to SMTP server")
	return cl, nil
}

// Send delivers the message described by header and body. The envelope
// sender is the first From address and the recipients are To, Cc and Bcc.
// Bcc is not transmitted.
func (c *SMTPClient) Send(header mail.Header, body io.Reader) error {
	from, rcpts, err := Envelope(header)
	if err != nil {
		return err
	}
	if from == "" {
		from = c.config.SMTPUsername
	}
	if len(rcpts) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	cl, err := c.conn.Get()
	if err != nil {
		return err
	}

	if err := c.transmit(cl, from, rcpts, header, body); err != nil {
		// The session state is unknown after a failed transaction.
		if cl, ok := c.conn.Reset(); ok {
			cl.Close()
		}
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"account":    c.config.Name,
		"from":       from,
		"recipients": len(rcpts),
	}).Info("Sent message")
	return nil
}

func (c *SMTPClient) transmit(cl *smtp.Client, from string, rcpts []string, header mail.Header, body io.Reader) error {
	if err := cl.Mail(from, nil); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, to := range rcpts {
		if err := cl.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", to, err)
		}
	}

	w, err := cl.Data()
	if err != nil {
		return fmt.Errorf("failed to send data command: %w", err)
	}

	h := header.Copy()
	h.Del("Bcc")
	if err := textproto.WriteHeader(w, h.Header.Header); err != nil {
		w.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return nil
}

// Close ends the SMTP session
func (c *SMTPClient) Close() error {
	cl, ok := c.conn.Reset()
	if !ok {
		return nil
	}
	return cl.Quit()
}

// SetLogger sets the logger for the client
func (c *SMTPClient) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Envelope derives the SMTP envelope from a message header
func Envelope(header mail.Header) (string, []string, error) {
	var from string
	senders, err := header.AddressList("From")
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse From: %w", err)
	}
	if len(senders) > 0 {
		from = senders[0].Address
	}

	var rcpts []string
	for _, key := range []string{"To", "Cc", "Bcc"} {
		addrs, err := header.AddressList(key)
		if err != nil {
			return "", nil, fmt.Errorf("failed to parse %s: %w", key, err)
		}
		for _, a := range addrs {
			rcpts = append(rcpts, a.Address)
		}
	}
	return from, rcpts, nil
}
