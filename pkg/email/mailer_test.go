package email_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/email"
)

func TestSendEmailParamsValidate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Test Subject",
		BodyHTML: "<p>Test body</p>",
	}

	t.Run("valid params", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, valid.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*email.SendEmailParams)
		errMsg string
	}{
		{"empty recipient", func(p *email.SendEmailParams) { p.SendTo = "" }, "SendTo is required"},
		{"whitespace recipient", func(p *email.SendEmailParams) { p.SendTo = "   " }, "SendTo is required"},
		{"invalid recipient", func(p *email.SendEmailParams) { p.SendTo = "not-an-email" }, "valid email address"},
		{"missing domain", func(p *email.SendEmailParams) { p.SendTo = "user@" }, "valid email address"},
		{"empty subject", func(p *email.SendEmailParams) { p.Subject = "" }, "Subject is required"},
		{"empty body", func(p *email.SendEmailParams) { p.BodyHTML = "" }, "BodyHTML is required"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			params := valid
			tt.mutate(&params)
			err := params.Validate()
			require.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("writes html and metadata", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sender := email.NewDevSender(dir)
		err := sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   "user@example.com",
			Subject:  "Order Reminder",
			BodyHTML: "<p>soon</p>",
			Tag:      "subscription-reminder",
		})
		require.NoError(t, err)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)

		var html string
		for _, f := range files {
			if strings.HasSuffix(f.Name(), ".html") {
				content, err := os.ReadFile(filepath.Join(dir, f.Name()))
				require.NoError(t, err)
				html = string(content)
				assert.Contains(t, f.Name(), "subscription-reminder")
			}
		}
		assert.Equal(t, "<p>soon</p>", html)
	})

	t.Run("rejects invalid params before touching disk", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sender := email.NewDevSender(dir)
		err := sender.SendEmail(ctx, email.SendEmailParams{Subject: "x", BodyHTML: "y"})
		require.ErrorIs(t, err, email.ErrInvalidParams)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestNewPostmarkClient(t *testing.T) {
	t.Parallel()

	valid := email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "noreply@example.com",
		SupportEmail:         "support@example.com",
	}

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		client, err := email.NewPostmarkClient(valid)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	tests := []struct {
		name   string
		mutate func(*email.Config)
	}{
		{"missing server token", func(c *email.Config) { c.PostmarkServerToken = "" }},
		{"missing account token", func(c *email.Config) { c.PostmarkAccountToken = "" }},
		{"missing sender", func(c *email.Config) { c.SenderEmail = "" }},
		{"invalid sender", func(c *email.Config) { c.SenderEmail = "nope" }},
		{"missing support", func(c *email.Config) { c.SupportEmail = "" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)
			_, err := email.NewPostmarkClient(cfg)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
		})
	}

	t.Run("must variant panics on invalid config", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			email.MustNewPostmarkClient(email.Config{})
		})
	})
}
