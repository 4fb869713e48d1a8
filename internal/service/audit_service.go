package service

import (
	"context"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"
	"ladders_backend/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditService handles audit logging. Writes are best effort: a failure is
// logged and never fails the audited operation.
type AuditService struct {
	repo *repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
	}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, actor domain.Identity, key domain.SessionKey, action, category string, details map[string]interface{}) {
	if s == nil {
		return
	}
	entry := &domain.AuditLog{
		Actor:      actor,
		SessionKey: key,
		Action:     action,
		Category:   category,
		Details:    details,
	}
	if meta, ok := requestMetaFrom(ctx); ok {
		entry.IP = meta.IP
		entry.UserAgent = meta.UserAgent
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "actor", actor)
	}
}

// LogGame logs a gameplay action on a session
func (s *AuditService) LogGame(ctx context.Context, actor domain.Identity, key domain.SessionKey, action string, details map[string]interface{}) {
	s.Log(ctx, actor, key, action, domain.AuditCategoryGame, details)
}

// LogPayment logs a fund movement on a session
func (s *AuditService) LogPayment(ctx context.Context, actor domain.Identity, key domain.SessionKey, action string, amount int64) {
	s.Log(ctx, actor, key, action, domain.AuditCategoryPayment, map[string]interface{}{"amount": amount})
}

// SessionTrail returns the audit trail of a session
func (s *AuditService) SessionTrail(ctx context.Context, key domain.SessionKey, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 200
	}
	return s.repo.GetBySession(ctx, key, limit)
}

// RequestMeta carries caller network details for audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta attaches request details to ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}
