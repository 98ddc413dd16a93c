// Package notify delivers moderation event notifications to document owners
// over SMTP.
package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"codex/api/internal/store"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type actorLookup interface {
	GetActor(ctx context.Context, id string) (store.Actor, error)
}

// Service sends event mail to actors. Actors without an email address are
// skipped silently; not every account has one.
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	actors actorLookup
}

func NewService(config Config, actors actorLookup) *Service {
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   smtp.PlainAuth("", config.Username, config.Password, config.Host),
		actors: actors,
	}
}

// IsConfigured reports whether SMTP delivery can work at all.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// Notify resolves the actor's address and sends one plain-text mail.
func (s *Service) Notify(ctx context.Context, actorID, eventKind, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	actor, err := s.actors.GetActor(ctx, actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", actorID, err)
	}
	if strings.TrimSpace(actor.Email) == "" {
		return nil
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"X-Codex-Event: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		actor.Email,
		from,
		subject,
		eventKind,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, []string{actor.Email}, msg)
}
