package email

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/internal/config"
)

// AccountManager manages multiple email accounts
type AccountManager struct {
	accounts map[string]*Account
	logger   *logrus.Logger
}

// Account represents an email account with IMAP and SMTP clients
type Account struct {
	Config *config.AccountConfig
	IMAP   *IMAPClient
	SMTP   *SMTPClient
}

// NewAccountManager creates a new account manager
func NewAccountManager(cfg *config.Config, logger *logrus.Logger) (*AccountManager, error) {
	if logger == nil {
		logger = logrus.New()
	}
	manager := &AccountManager{
		accounts: make(map[string]*Account),
		logger:   logger,
	}

	for i := range cfg.Accounts {
		accCfg := &cfg.Accounts[i]

		imapClient, err := NewIMAPClient(accCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create IMAP client for %s: %w", accCfg.Name, err)
		}
		imapClient.SetLogger(logger)

		smtpClient, err := NewSMTPClient(accCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create SMTP client for %s: %w", accCfg.Name, err)
		}
		smtpClient.SetLogger(logger)

		manager.accounts[accCfg.Name] = &Account{
			Config: accCfg,
			IMAP:   imapClient,
			SMTP:   smtpClient,
		}
	}

	return manager, nil
}

// GetAccount returns an account by name
func (m *AccountManager) GetAccount(name string) (*Account, error) {
	account, exists := m.accounts[name]
	if !exists {
		return nil, fmt.Errorf("account not found: %s", name)
	}
	return account, nil
}

// ListAccounts returns all account names in sorted order
func (m *AccountManager) ListAccounts() []string {
	names := make([]string, 0, len(m.accounts))
	for name := range m.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes all account connections
func (m *AccountManager) Close() error {
	var firstErr error
	for name, account := range m.accounts {
		if err := account.IMAP.Close(); err != nil {
			m.logger.WithError(err).WithField("account", name).Warn("Failed to close IMAP connection")
			if firstErr == nil {
				firstErr = err
			}
		}
		if err := account.SMTP.Close(); err != nil {
			m.logger.WithError(err).WithField("account", name).Warn("Failed to close SMTP connection")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
