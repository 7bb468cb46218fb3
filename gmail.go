package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sirupsen/logrus"
)

// MailClient fetches message metadata from the provider
type MailClient interface {
	AuthCodeURL() string
	Exchange(ctx context.Context, code string) (*Credential, error)
	FetchRecent(ctx context.Context, cred *Credential, limit int) ([]InboundMessage, error)
}

// GmailClient implements MailClient against the Gmail REST API
type GmailClient struct {
	config *GoogleConfig
}

// NewGmailClient creates a Gmail API client for the given OAuth2 registration
func NewGmailClient(config *GoogleConfig) *GmailClient {
	return &GmailClient{config: config}
}

// oauthConfig builds the OAuth2 config for the consent and exchange steps
func (g *GmailClient) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.config.ClientID,
		ClientSecret: g.config.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
		RedirectURL:  g.config.RedirectURI,
	}
}

// AuthCodeURL returns the provider consent page URL. Offline access is
// requested so the exchange yields a refresh token.
func (g *GmailClient) AuthCodeURL() string {
	// The state value is a fixed placeholder and the callback does not
	// verify it; real CSRF protection needs a per-request nonce.
	return g.oauthConfig().AuthCodeURL("state-token",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades a one-time authorization code for a long-lived credential
func (g *GmailClient) Exchange(ctx context.Context, code string) (*Credential, error) {
	oauthConfig := g.oauthConfig()

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return &Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     google.Endpoint.TokenURL,
		ClientID:     g.config.ClientID,
		ClientSecret: g.config.ClientSecret,
		Scopes:       oauthConfig.Scopes,
	}, nil
}

// service builds a Gmail service from a stored credential. The token source
// refreshes the access token on demand; a stale refresh token surfaces as a
// provider error on the next call.
func (g *GmailClient) service(ctx context.Context, cred *Credential) (*gmail.Service, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Scopes:       cred.Scopes,
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
	}

	tokenSource := oauthConfig.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return service, nil
}

// FetchRecent lists the most recent message ids and fetches each message's
// detail. A failed fetch for a single id is logged and skipped.
func (g *GmailClient) FetchRecent(ctx context.Context, cred *Credential, limit int) ([]InboundMessage, error) {
	service, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	response, err := service.Users.Messages.List("me").MaxResults(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var inbound []InboundMessage

	for _, msg := range response.Messages {
		detail, err := service.Users.Messages.Get("me", msg.Id).Context(ctx).Do()
		if err != nil {
			logrus.Warnf("Failed to get message %s: %v", msg.Id, err)
			continue
		}

		inbound = append(inbound, parseGmailMessage(detail))
	}

	return inbound, nil
}

// parseGmailMessage flattens a Gmail API message into the fields this
// service persists. Header names are matched exactly, the way the provider
// reports them.
func parseGmailMessage(msg *gmail.Message) InboundMessage {
	inbound := InboundMessage{
		MessageID: msg.Id,
		ThreadID:  msg.ThreadId,
		HistoryID: fmt.Sprintf("%d", msg.HistoryId),
		Snippet:   msg.Snippet,
		// internalDate is epoch milliseconds
		SentAt: time.Unix(msg.InternalDate/1000, 0).UTC(),
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "Subject":
				inbound.Subject = header.Value
			case "From":
				inbound.Sender = header.Value
			case "To":
				inbound.Recipient = header.Value
			}
		}
	}

	return inbound
}
