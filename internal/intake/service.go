package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/followup/internal/domain"
	"github.com/shaiso/followup/internal/followup"
	"github.com/shaiso/followup/internal/mq"
	"github.com/shaiso/followup/internal/repo"
)

// Ошибки intake.
var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidInterval = errors.New("email interval must be a positive number of minutes")
	ErrInvalidStatus   = errors.New("invalid lead status")
	ErrNoLeads         = errors.New("no leads to import")
)

// Источники lead'ов для события lead.created.
const (
	SourceImport = "import"
	SourceTest   = "test"
)

// Repository — операции хранилища, нужные intake.
type Repository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	CreateMany(ctx context.Context, leads []*domain.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	List(ctx context.Context, filter repo.LeadFilter) ([]domain.Lead, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
}

// EventPublisher публикует событие о новом lead'е.
type EventPublisher interface {
	PublishLeadCreated(ctx context.Context, payload mq.LeadCreatedPayload) error
}

// Config — конфигурация Service.
type Config struct {
	Repo      Repository
	Notifier  followup.Notifier
	Publisher EventPublisher // опционально
	Logger    *slog.Logger
	Now       func() time.Time

	// OpTimeout ограничивает отправку приветственного письма (default: 30s),
	// как отправку follow-up в проходе.
	OpTimeout time.Duration
}

const defaultOpTimeout = 30 * time.Second

// Service — операции над leads.
type Service struct {
	repo      Repository
	notifier  followup.Notifier
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	opTimeout time.Duration
}

// NewService создаёт новый Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Service{
		repo:      cfg.Repo,
		notifier:  cfg.Notifier,
		publisher: cfg.Publisher,
		logger:    logger,
		now:       now,
		opTimeout: opTimeout,
	}
}

// TestLeadResult — результат test-trigger.
type TestLeadResult struct {
	Lead *domain.Lead `json:"lead"`
	Sent bool         `json:"sent"`
}

// Import создаёт leads одной транзакцией.
//
// interval == 0 означает DefaultEmailInterval, отрицательный — ошибка.
// Адреса нормализуются, дубликаты внутри запроса отбрасываются.
// Один невалидный адрес отклоняет весь импорт.
func (s *Service) Import(ctx context.Context, emails []string, interval int) ([]*domain.Lead, error) {
	if interval < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidInterval, interval)
	}

	now := s.now()
	seen := make(map[string]struct{}, len(emails))
	leads := make([]*domain.Lead, 0, len(emails))
	for _, raw := range emails {
		email, err := ValidateEmail(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		leads = append(leads, domain.NewLead(email, interval, now))
	}
	if len(leads) == 0 {
		return nil, ErrNoLeads
	}

	if err := s.repo.CreateMany(ctx, leads); err != nil {
		return nil, fmt.Errorf("import leads: %w", err)
	}

	s.logger.Info("leads imported", "count", len(leads), "email_interval", leads[0].EmailInterval)

	for _, lead := range leads {
		s.publishCreated(ctx, lead, SourceImport)
	}
	return leads, nil
}

// TestLead создаёт lead с интервалом в одну минуту и сразу отправляет ему
// приветственное письмо через тот же Notifier, что и рассылка.
//
// last_contacted_at не выставляется: первый follow-up придёт через минуту
// после создания. Ошибка доставки не отменяет создание lead'а.
func (s *Service) TestLead(ctx context.Context, email string) (TestLeadResult, error) {
	normalized, err := ValidateEmail(email)
	if err != nil {
		return TestLeadResult{}, err
	}

	lead := domain.NewLead(normalized, domain.TestEmailInterval, s.now())
	if err := s.repo.Create(ctx, lead); err != nil {
		return TestLeadResult{}, fmt.Errorf("create test lead: %w", err)
	}
	s.publishCreated(ctx, lead, SourceTest)

	msg, err := followup.WelcomeMessage(lead)
	if err != nil {
		return TestLeadResult{Lead: lead}, fmt.Errorf("%w: %w", followup.ErrDeliveryFailed, err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	err = s.notifier.Send(sendCtx, lead.Email, msg.Subject, msg.Body)
	cancel()
	if err != nil {
		s.logger.Error("failed to send welcome email",
			"lead_id", lead.ID,
			"email", lead.Email,
			"error", err,
		)
		return TestLeadResult{Lead: lead}, fmt.Errorf("%w: %w", followup.ErrDeliveryFailed, err)
	}

	s.logger.Info("test lead created", "lead_id", lead.ID, "email", lead.Email)
	return TestLeadResult{Lead: lead, Sent: true}, nil
}

// List возвращает leads, опционально отфильтрованные по статусу.
func (s *Service) List(ctx context.Context, filter repo.LeadFilter) ([]domain.Lead, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// Get возвращает lead по ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// SetStatus меняет статус lead'а и возвращает обновлённую запись.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) (*domain.Lead, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}

	s.logger.Info("lead status changed", "lead_id", id, "status", status)
	return s.repo.GetByID(ctx, id)
}

// Delete удаляет lead.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("lead deleted", "lead_id", id)
	return nil
}

// DeleteAll удаляет все leads и возвращает их количество.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("all leads deleted", "count", n)
	return n, nil
}

func (s *Service) publishCreated(ctx context.Context, lead *domain.Lead, source string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishLeadCreated(ctx, mq.LeadCreatedPayload{
		LeadID:        lead.ID,
		Email:         lead.Email,
		EmailInterval: lead.EmailInterval,
		Source:        source,
	})
	if err != nil {
		s.logger.Warn("failed to publish lead.created", "lead_id", lead.ID, "error", err)
	}
}

// ValidateEmail нормализует адрес и проверяет его синтаксис.
// Допускается только голый адрес, без display name.
func ValidateEmail(raw string) (string, error) {
	email := domain.NormalizeEmail(raw)
	if email == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidEmail)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return email, nil
}
