package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"provena/internal/audit"
	auditmetrics "provena/internal/audit/metrics"
	"provena/internal/audit/store/memory"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
	"provena/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	svc    *audit.Service
	admin  id.PrincipalID
	writer id.PrincipalID
	ctx    context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.admin = id.PrincipalID(uuid.New())
	s.writer = id.PrincipalID(uuid.New())
	s.svc = audit.NewService(memory.NewInMemoryStore(), s.admin)

	s.Require().NoError(s.svc.RegisterAction(s.ctx, s.admin, audit.ActionTransferProposed))
	s.Require().NoError(s.svc.AuthorizeWriter(s.ctx, s.admin, s.writer))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestActionRegistry() {
	s.Run("duplicate registration fails with AlreadyExists", func() {
		err := s.svc.RegisterAction(s.ctx, s.admin, audit.ActionTransferProposed)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.Run("deregistering unknown code fails with NotFound", func() {
		err := s.svc.DeregisterAction(s.ctx, s.admin, "never_registered")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("non-admin cannot mutate the whitelist", func() {
		err := s.svc.RegisterAction(s.ctx, s.writer, "rogue_action")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("appending an unregistered code fails and does not advance count", func() {
		before, err := s.svc.Count(s.ctx)
		s.Require().NoError(err)

		_, err = s.svc.Append(s.ctx, s.writer, "unregistered", id.ItemID(uuid.New()), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAction))

		after, err := s.svc.Count(s.ctx)
		s.Require().NoError(err)
		s.Equal(before, after)
	})
}

func (s *ServiceSuite) TestWriterAuthorization() {
	s.Run("unauthorized writer cannot append", func() {
		stranger := id.PrincipalID(uuid.New())
		_, err := s.svc.Append(s.ctx, stranger, audit.ActionTransferProposed, id.ItemID(uuid.New()), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("double authorization fails with AlreadyAuthorized", func() {
		err := s.svc.AuthorizeWriter(s.ctx, s.admin, s.writer)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyAuthorized))
	})

	s.Run("deauthorizing an unknown writer fails with NotAuthorized", func() {
		err := s.svc.DeauthorizeWriter(s.ctx, s.admin, id.PrincipalID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("deauthorized writer loses append rights", func() {
		revoked := id.PrincipalID(uuid.New())
		s.Require().NoError(s.svc.AuthorizeWriter(s.ctx, s.admin, revoked))
		s.Require().NoError(s.svc.DeauthorizeWriter(s.ctx, s.admin, revoked))

		_, err := s.svc.Append(s.ctx, revoked, audit.ActionTransferProposed, id.ItemID(uuid.New()), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// TestMonotonicity verifies append always assigns count+1 and ranges come
// back dense and ascending.
func (s *ServiceSuite) TestMonotonicity() {
	item := id.ItemID(uuid.New())

	for i := 1; i <= 7; i++ {
		before, err := s.svc.Count(s.ctx)
		s.Require().NoError(err)

		entryID, err := s.svc.Append(s.ctx, s.writer, audit.ActionTransferProposed, item, nil)
		s.Require().NoError(err)
		s.Equal(id.AuditEntryID(before+1), entryID)
	}

	count, err := s.svc.Count(s.ctx)
	s.Require().NoError(err)

	entries, err := s.svc.Range(s.ctx, 1, id.AuditEntryID(count))
	s.Require().NoError(err)
	s.Require().Len(entries, int(count))
	for i, e := range entries {
		s.Equal(id.AuditEntryID(i+1), e.ID)
	}
}

func (s *ServiceSuite) TestRangeValidation() {
	item := id.ItemID(uuid.New())
	for i := 0; i < 3; i++ {
		_, err := s.svc.Append(s.ctx, s.writer, audit.ActionTransferProposed, item, nil)
		s.Require().NoError(err)
	}

	cases := []struct {
		name       string
		start, end id.AuditEntryID
	}{
		{"start below 1", 0, 2},
		{"start beyond count", 4, 4},
		{"end before start", 3, 2},
		{"end beyond count", 1, 9},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.Range(s.ctx, tc.start, tc.end)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidRange))
		})
	}
}

func (s *ServiceSuite) TestAppendStampsAndStores() {
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	svc := audit.NewService(memory.NewInMemoryStore(), s.admin,
		audit.WithClock(func() time.Time { return fixed }),
	)
	s.Require().NoError(svc.RegisterAction(s.ctx, s.admin, audit.ActionTransferRejected))
	s.Require().NoError(svc.AuthorizeWriter(s.ctx, s.admin, s.writer))

	item := id.ItemID(uuid.New())
	entryID, err := svc.Append(s.ctx, s.writer, audit.ActionTransferRejected, item, []byte("reason: incomplete kyc"))
	s.Require().NoError(err)

	entry, err := svc.Get(s.ctx, entryID)
	s.Require().NoError(err)
	s.Equal(fixed, entry.Timestamp)
	s.Equal(item, entry.SubjectItemID)
	s.Equal([]byte("reason: incomplete kyc"), entry.Payload)

	_, err = svc.Get(s.ctx, 42)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSinkMirroring() {
	sink := make(chan audit.Entry, 1)
	svc := audit.NewService(memory.NewInMemoryStore(), s.admin, audit.WithSink(sink))
	s.Require().NoError(svc.RegisterAction(s.ctx, s.admin, audit.ActionTransferProposed))
	s.Require().NoError(svc.AuthorizeWriter(s.ctx, s.admin, s.writer))

	entryID, err := svc.Append(s.ctx, s.writer, audit.ActionTransferProposed, id.ItemID(uuid.New()), nil)
	s.Require().NoError(err)

	mirrored := <-sink
	s.Equal(entryID, mirrored.ID)

	// A full sink must not block or fail the append.
	_, err = svc.Append(s.ctx, s.writer, audit.ActionTransferProposed, id.ItemID(uuid.New()), nil)
	s.Require().NoError(err)
	_, err = svc.Append(s.ctx, s.writer, audit.ActionTransferProposed, id.ItemID(uuid.New()), nil)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestAppendsAreCounted() {
	m := auditmetrics.New()
	sink := make(chan audit.Entry)
	svc := audit.NewService(memory.NewInMemoryStore(), s.admin,
		audit.WithMetrics(m),
		audit.WithSink(sink),
	)
	s.Require().NoError(svc.RegisterAction(s.ctx, s.admin, audit.ActionTransferProposed))
	s.Require().NoError(svc.AuthorizeWriter(s.ctx, s.admin, s.writer))

	_, err := svc.Append(s.ctx, s.writer, audit.ActionTransferProposed, id.ItemID(uuid.New()), nil)
	s.Require().NoError(err)

	s.Equal(1.0, promtestutil.ToFloat64(m.EntriesAppended.WithLabelValues(audit.ActionTransferProposed)))
	// Nothing reads the sink, so the mirror drop is counted too.
	s.Equal(1.0, promtestutil.ToFloat64(m.SinkDropped))
}

// Entries appended without an explicit clock pick up the request-scoped time
// pinned by the HTTP middleware.
func (s *ServiceSuite) TestAppendStampsWithRequestTime() {
	pinned := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, pinned)

	entryID, err := s.svc.Append(ctx, s.writer, audit.ActionTransferProposed, id.ItemID(uuid.New()), nil)
	s.Require().NoError(err)

	entry, err := s.svc.Get(s.ctx, entryID)
	s.Require().NoError(err)
	s.Equal(pinned, entry.Timestamp)
}
