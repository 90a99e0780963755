package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	auditmetrics "provena/internal/audit/metrics"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
	"provena/pkg/platform/sentinel"
	"provena/pkg/requestcontext"
)

// Service is the audit log authority. It owns the action whitelist and the
// writer authorization set, and is the only path through which entries reach
// the store. Administrative mutations require the configured administrator
// identity; authentication of that identity is the caller's concern.
type Service struct {
	store   Store
	admin   id.PrincipalID
	logger  *slog.Logger
	metrics *auditmetrics.Metrics
	sink    chan<- Entry
	now     func() time.Time

	mu      sync.RWMutex
	actions map[string]struct{}
	writers map[id.PrincipalID]struct{}
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSink mirrors accepted entries to a channel for asynchronous fan-out
// (e.g. the Kafka worker). Mirroring is best-effort: the in-process log is
// the source of truth and a full sink never blocks or fails an append.
func WithSink(sink chan<- Entry) Option {
	return func(s *Service) { s.sink = sink }
}

// WithClock overrides the timestamp source. Tests inject fixed clocks.
// Without an override, entries are stamped with the request-scoped time when
// the context carries one.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the audit log with an empty whitelist and writer set.
// Bootstrap registers CoreActions and authorizes the registry's own writer
// identities through the administrative operations below.
func NewService(store Store, admin id.PrincipalID, opts ...Option) *Service {
	s := &Service{
		store:   store,
		admin:   admin,
		actions: make(map[string]struct{}),
		writers: make(map[id.PrincipalID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

func (s *Service) requireAdmin(actor id.PrincipalID) error {
	if actor != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the audit administrator")
	}
	return nil
}

// RegisterAction adds an action code to the whitelist.
func (s *Service) RegisterAction(_ context.Context, actor id.PrincipalID, code string) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "action code is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[code]; ok {
		return dErrors.Newf(dErrors.CodeAlreadyExists, "action %q is already registered", code)
	}
	s.actions[code] = struct{}{}
	return nil
}

// DeregisterAction removes an action code from the whitelist. Entries already
// appended under the code remain untouched.
func (s *Service) DeregisterAction(_ context.Context, actor id.PrincipalID, code string) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[code]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "action %q is not registered", code)
	}
	delete(s.actions, code)
	return nil
}

// AuthorizeWriter grants a principal append rights.
func (s *Service) AuthorizeWriter(_ context.Context, actor, writer id.PrincipalID) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if writer.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "writer is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.writers[writer]; ok {
		return dErrors.Newf(dErrors.CodeAlreadyAuthorized, "writer %s is already authorized", writer)
	}
	s.writers[writer] = struct{}{}
	return nil
}

// DeauthorizeWriter revokes a principal's append rights.
func (s *Service) DeauthorizeWriter(_ context.Context, actor, writer id.PrincipalID) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.writers[writer]; !ok {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "writer %s is not authorized", writer)
	}
	delete(s.writers, writer)
	return nil
}

// Append records an accepted event and returns its assigned ID. The entry is
// timestamped here, stored synchronously, then mirrored to the sink if one is
// configured.
func (s *Service) Append(ctx context.Context, actor id.PrincipalID, action string, subjectItemID id.ItemID, payload []byte) (id.AuditEntryID, error) {
	s.mu.RLock()
	_, actionOK := s.actions[action]
	_, writerOK := s.writers[actor]
	s.mu.RUnlock()

	if !actionOK {
		return 0, dErrors.Newf(dErrors.CodeInvalidAction, "action %q is not registered", action)
	}
	if !writerOK {
		return 0, dErrors.Newf(dErrors.CodeUnauthorized, "writer %s is not authorized", actor)
	}

	entry := Entry{
		Actor:         actor,
		Action:        action,
		SubjectItemID: subjectItemID,
		Timestamp:     s.timestamp(ctx),
		Payload:       payload,
	}

	entryID, err := s.store.Append(ctx, entry)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncAppendFailures()
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "append audit entry")
	}
	entry.ID = entryID

	if s.metrics != nil {
		s.metrics.IncEntriesAppended(action)
	}

	if s.sink != nil {
		select {
		case s.sink <- entry:
		default:
			if s.metrics != nil {
				s.metrics.IncSinkDropped()
			}
			if s.logger != nil {
				s.logger.WarnContext(ctx, "audit sink full, entry not mirrored",
					"entry_id", uint64(entryID),
					"action", action,
				)
			}
		}
	}

	return entryID, nil
}

// Get returns a single entry by ID.
func (s *Service) Get(ctx context.Context, entryID id.AuditEntryID) (Entry, error) {
	entry, err := s.store.Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Entry{}, dErrors.Newf(dErrors.CodeNotFound, "audit entry %d does not exist", entryID)
		}
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "get audit entry")
	}
	return entry, nil
}

// Range returns entries with IDs in [startID, endID] in ascending order.
func (s *Service) Range(ctx context.Context, startID, endID id.AuditEntryID) ([]Entry, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count audit entries")
	}
	if startID < 1 || uint64(startID) > count || endID < startID || uint64(endID) > count {
		return nil, dErrors.Newf(dErrors.CodeInvalidRange, "range [%d, %d] is outside [1, %d]", startID, endID, count)
	}
	entries, err := s.store.Range(ctx, startID, endID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "range audit entries")
	}
	return entries, nil
}

// Count returns the number of appended entries.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count audit entries")
	}
	return count, nil
}

// ListByActor returns every entry appended by the given writer, in log order.
func (s *Service) ListByActor(ctx context.Context, actor id.PrincipalID) ([]Entry, error) {
	entries, err := s.store.ListByActor(ctx, actor)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit entries by actor")
	}
	return entries, nil
}
