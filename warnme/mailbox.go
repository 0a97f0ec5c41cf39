// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package warnme

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// EmailRecord is one flattened email, ready for CSV export.
type EmailRecord struct {
	ID       string
	ThreadID string
	Subject  string
	Sender   string
	To       string
	Received time.Time
	Snippet  string
	Body     string // prefers text/plain, falls back to HTML
	Labels   []string
}

// Mailbox is a read-only view over a Gmail account.
type Mailbox struct {
	service *gmail.Service
}

// NewMailbox authenticates against Gmail with the OAuth client config at
// credentialsPath, caching the user token at tokenPath. The first run walks
// the user through the browser consent flow.
func NewMailbox(ctx context.Context, credentialsPath, tokenPath string) (*Mailbox, error) {
	b, err := os.ReadFile(credentialsPath) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("reading client config: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}

	client, err := oauthClient(ctx, config, tokenPath)
	if err != nil {
		return nil, err
	}

	service, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	return &Mailbox{service: service}, nil
}

func oauthClient(ctx context.Context, config *oauth2.Config, tokenPath string) (*http.Client, error) {
	token, err := tokenFromFile(tokenPath)
	if err != nil {
		token, err = tokenFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}

		if err := saveToken(tokenPath, token); err != nil {
			return nil, err
		}
	}

	return config.Client(ctx, token), nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}

	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("decoding token file: %w", err)
	}

	return token, nil
}

func tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%v\n", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("reading authorization code: %w", err)
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	log.Printf("Saving credential file to: %s", path)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 - path is provided by the operator
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	return nil
}

// FindBySender returns the messages from a given sender, newest first.
// newerThan uses Gmail's relative syntax ("180d"); empty means unbounded.
func (m *Mailbox) FindBySender(sender, newerThan string, max int64) ([]*EmailRecord, error) {
	return m.search(Query{Sender: sender, NewerThan: newerThan}, max)
}

// FindBySubject returns the messages whose subject contains the given text.
func (m *Mailbox) FindBySubject(subject, newerThan string, max int64) ([]*EmailRecord, error) {
	return m.search(Query{Subject: subject, NewerThan: newerThan}, max)
}

// FindAfter returns the messages received after the given time, optionally
// restricted to one sender.
func (m *Mailbox) FindAfter(after time.Time, sender string, max int64) ([]*EmailRecord, error) {
	return m.search(Query{Sender: sender, After: after}, max)
}

func (m *Mailbox) search(q Query, max int64) ([]*EmailRecord, error) {
	var records []*EmailRecord

	pageToken := ""

	for {
		call := m.service.Users.Messages.List("me").Q(q.String())
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		if max > 0 {
			remaining := max - int64(len(records))
			if remaining <= 0 {
				break
			}

			call = call.MaxResults(min(remaining, 500))
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("listing messages for %q: %w", q.String(), err)
		}

		for _, msg := range resp.Messages {
			record, err := m.LoadMessage(msg.Id)
			if err != nil {
				return nil, err
			}

			records = append(records, record)

			if max > 0 && int64(len(records)) >= max {
				return records, nil
			}
		}

		if resp.NextPageToken == "" {
			break
		}

		pageToken = resp.NextPageToken
	}

	return records, nil
}

// LoadMessage fetches one full message and flattens it into an EmailRecord.
func (m *Mailbox) LoadMessage(id string) (*EmailRecord, error) {
	msg, err := m.service.Users.Messages.Get("me", id).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("loading message %s: %w", id, err)
	}

	record := &EmailRecord{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Labels:   msg.LabelIds,
	}

	if msg.Payload != nil {
		record.Subject = headerValue(msg.Payload.Headers, "Subject")
		record.Sender = headerValue(msg.Payload.Headers, "From")
		record.To = headerValue(msg.Payload.Headers, "To")
		record.Received = receivedTime(msg)
		record.Body = extractBody(msg.Payload)
	}

	return record, nil
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}

	return ""
}

// receivedTime prefers the Date header and falls back to Gmail's internal
// timestamp.
func receivedTime(msg *gmail.Message) time.Time {
	if date := headerValue(msg.Payload.Headers, "Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			return t.UTC()
		}
	}

	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate).UTC()
	}

	return time.Time{}
}

// extractBody walks the MIME tree preferring text/plain over text/html.
func extractBody(part *gmail.MessagePart) string {
	plain, html := collectBodies(part)
	if plain != "" {
		return plain
	}

	return html
}

func collectBodies(part *gmail.MessagePart) (plain, html string) {
	if part == nil {
		return "", ""
	}

	if part.Body != nil && part.Body.Data != "" {
		if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data); err == nil {
			switch part.MimeType {
			case "text/plain":
				plain = string(decoded)
			case "text/html":
				html = string(decoded)
			}
		}
	}

	for _, child := range part.Parts {
		childPlain, childHTML := collectBodies(child)

		if plain == "" {
			plain = childPlain
		}

		if html == "" {
			html = childHTML
		}
	}

	return plain, html
}
