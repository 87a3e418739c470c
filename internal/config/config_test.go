package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSingleAccount(t *testing.T) {
	t.Setenv("IMAP_HOST", "imap.example.org")
	t.Setenv("IMAP_USERNAME", "user")
	t.Setenv("IMAP_PASSWORD", "secret")
	t.Setenv("SMTP_HOST", "smtp.example.org")
	t.Setenv("SMTP_USERNAME", "user")
	t.Setenv("SMTP_PASSWORD", "secret")
}

func TestLoadConfigSingleAccount(t *testing.T) {
	setSingleAccount(t)
	t.Setenv("SENT_FOLDER", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Accounts, 1)
	acc := cfg.Accounts[0]
	assert.Equal(t, "default", acc.Name)
	assert.Equal(t, 993, acc.IMAPPort)
	assert.Equal(t, 587, acc.SMTPPort)
	assert.Equal(t, SecurityTLS, acc.IMAPSecurity)
	assert.Equal(t, SecurityStartTLS, acc.SMTPSecurity)
	assert.Equal(t, "Drafts", acc.DraftsFolder)
	assert.Equal(t, "", acc.SentFolder)
	assert.Equal(t, 50, cfg.ListLimit)
	assert.Equal(t, "", cfg.JournalPath)
}

func TestLoadConfigNumberedAccounts(t *testing.T) {
	for _, prefix := range []string{"ACCOUNT_1_", "ACCOUNT_2_"} {
		t.Setenv(prefix+"IMAP_HOST", "imap.example.org")
		t.Setenv(prefix+"IMAP_USERNAME", "user")
		t.Setenv(prefix+"IMAP_PASSWORD", "secret")
		t.Setenv(prefix+"SMTP_HOST", "smtp.example.org")
		t.Setenv(prefix+"SMTP_USERNAME", "user")
		t.Setenv(prefix+"SMTP_PASSWORD", "secret")
	}
	t.Setenv("ACCOUNT_1_NAME", "work")
	t.Setenv("ACCOUNT_2_NAME", "home")
	t.Setenv("ACCOUNT_2_IMAP_SECURITY", "NONE")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"work", "home"}, cfg.AccountNames())
	acc, err := cfg.GetAccountByName("home")
	require.NoError(t, err)
	assert.Equal(t, SecurityNone, acc.IMAPSecurity)
	assert.Equal(t, "Sent", acc.SentFolder)
}

func TestLoadConfigMissingPassword(t *testing.T) {
	setSingleAccount(t)
	t.Setenv("SMTP_PASSWORD", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	setSingleAccount(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Accounts[0].IMAPSecurity = "ssl"
	assert.ErrorContains(t, cfg.Validate(), "IMAP_SECURITY")

	cfg.Accounts[0].IMAPSecurity = SecurityTLS
	cfg.ListLimit = 0
	assert.ErrorContains(t, cfg.Validate(), "LIST_LIMIT")
}
