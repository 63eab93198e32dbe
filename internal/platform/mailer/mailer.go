// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

/*
Package mailer provides outbound email delivery for the platform.

It implements the Notifier contract consumed by the identity engine for OTP
codes, password reset links, and account notifications.

Delivery Semantics:

  - Best-effort: A delivery failure is reported to the caller but never rolls
    back the state transition that triggered the send.
  - Pluggable: SMTP for real environments, a log-only sink for development.

Message bodies are owned by the calling domain; this package is transport only.
*/
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// # SMTP Delivery

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer constructs an [SMTPMailer].
//
// # Parameters
//   - addr: Relay address in host:port form.
//   - username, password: PLAIN auth credentials; empty username disables auth.
//   - from: Envelope sender address.
func NewSMTPMailer(addr, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPMailer{addr: addr, auth: auth, from: from}
}

/*
Send delivers a plain-text email to a single recipient.

Parameters:
  - context: context.Context (honored between dial attempts; net/smtp itself
    does not take a context, so an already-cancelled context aborts early)
  - to: string
  - subject: string
  - body: string

Returns:
  - error: Relay or protocol failures
*/
func (mailer *SMTPMailer) Send(context context.Context, to, subject, body string) error {
	if err := context.Err(); err != nil {
		return fmt.Errorf("mailer_send_cancelled: %w", err)
	}

	message := strings.Join([]string{
		"From: " + mailer.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(mailer.addr, mailer.auth, mailer.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("mailer_send_failed: %w", err)
	}

	return nil
}

// # Development Delivery

// LogMailer writes outbound mail to the structured log instead of sending it.
//
// # Usage
//
// Wired automatically when no SMTP_ADDR is configured, so local development
// surfaces OTP codes in the server log.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a [LogMailer].
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message and always succeeds.
func (mailer *LogMailer) Send(context context.Context, to, subject, body string) error {
	mailer.logger.InfoContext(context, "mail_delivered_to_log",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
