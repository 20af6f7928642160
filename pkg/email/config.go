package email

// Config holds email service configuration. The Postmark tokens are
// optional so development environments can run with the DevSender instead;
// the sender and support addresses establish the from and reply-to identity
// of every outbound email.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
