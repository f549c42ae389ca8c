package email

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/divecrm/divecrm/internal/config"
)

// GmailSender implements Sender using the Gmail API. It is the provider of
// choice when the business mailbox lives on Google Workspace and plain
// SMTP app passwords are not available.
type GmailSender struct {
	service       *gmail.Service
	senderAddress string
	senderName    string
}

// NewGmailSender creates a GmailSender from the configured credentials.
// A service-account credentials JSON with domain-wide delegation is tried
// first; otherwise OAuth2 client credentials with a refresh token are used.
func NewGmailSender(ctx context.Context, cfg config.GmailEmailConfig) (*GmailSender, error) {
	if cfg.SenderAddress == "" {
		return nil, fmt.Errorf("gmail: sender address is required")
	}

	if cfg.CredentialsJSON != "" {
		jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), gmail.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("gmail: failed to parse credentials: %w", err)
		}
		// Impersonate the sender mailbox
		jwtConfig.Subject = cfg.SenderAddress

		svc, err := gmail.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
		if err != nil {
			return nil, fmt.Errorf("gmail: failed to create service: %w", err)
		}
		return &GmailSender{service: svc, senderAddress: cfg.SenderAddress, senderName: cfg.SenderName}, nil
	}

	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("gmail: credentials JSON or refresh token is required")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create service: %w", err)
	}

	return &GmailSender{service: svc, senderAddress: cfg.SenderAddress, senderName: cfg.SenderName}, nil
}

// Send sends an email via the Gmail API.
func (g *GmailSender) Send(ctx context.Context, msg Message) error {
	raw := buildMIME(formatFrom(g.senderName, g.senderAddress), msg)

	gmailMsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}

	if _, err := g.service.Users.Messages.Send("me", gmailMsg).Context(ctx).Do(); err != nil {
		return classify(ReasonProtocol, err)
	}
	return nil
}
