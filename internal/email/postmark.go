// Package email sends transactional mail through Postmark.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint, used by tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

// NewClient builds a Postmark client. baseURL is the public address of this
// server, used to build links in mail bodies.
func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendPasswordReset mails a reset link for the account.
func (c *Client) SendPasswordReset(toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", c.baseURL, token)
	text := fmt.Sprintf("Click the link below to reset your password:\n\n%s\n\nThis link expires in 15 minutes. If you didn't ask for this, you can ignore it.", link)
	html := fmt.Sprintf(
		`<p>Click the link below to reset your password:</p><p><a href="%s">Reset password</a></p><p>This link expires in 15 minutes. If you didn't ask for this, you can ignore it.</p>`,
		link,
	)
	return c.send(toEmail, "Reset your Chore Quest password", html, text)
}

// SendHouseholdInvite mails a join code to a new family member.
func (c *Client) SendHouseholdInvite(toEmail, householdName, joinCode string) error {
	subject := fmt.Sprintf("You've been invited to %s on Chore Quest", householdName)
	text := fmt.Sprintf("You've been invited to join %s.\n\nUse join code %s at %s/join to get started.", householdName, joinCode, c.baseURL)
	html := fmt.Sprintf(
		`<p>You've been invited to join <strong>%s</strong>.</p><p>Use join code <strong>%s</strong> at <a href="%s/join">%s/join</a> to get started.</p>`,
		householdName, joinCode, c.baseURL, c.baseURL,
	)
	return c.send(toEmail, subject, html, text)
}

func (c *Client) send(to, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       to,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
