//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"provena/internal/audit"
	"provena/internal/audit/store/postgres"
	id "provena/pkg/domain"
	"provena/pkg/platform/sentinel"
	"provena/pkg/platform/tx"
	"provena/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(s.ctx))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "audit_entries"))
}

func (s *PostgresStoreSuite) newEntry(actor id.PrincipalID, action string) audit.Entry {
	return audit.Entry{
		Actor:         actor,
		Action:        action,
		SubjectItemID: id.ItemID(uuid.New()),
		Timestamp:     time.Now().UTC(),
		Payload:       []byte(`{"note":"test"}`),
	}
}

// TestDenseSequence verifies IDs are assigned 1, 2, 3... with no gaps.
func (s *PostgresStoreSuite) TestDenseSequence() {
	actor := id.PrincipalID(uuid.New())

	for i := 1; i <= 5; i++ {
		entryID, err := s.store.Append(s.ctx, s.newEntry(actor, audit.ActionTransferProposed))
		s.Require().NoError(err)
		s.Equal(id.AuditEntryID(i), entryID)
	}

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(5), count)

	entries, err := s.store.Range(s.ctx, 1, 5)
	s.Require().NoError(err)
	s.Require().Len(entries, 5)
	for i, e := range entries {
		s.Equal(id.AuditEntryID(i+1), e.ID)
	}
}

func (s *PostgresStoreSuite) TestGetAndNotFound() {
	actor := id.PrincipalID(uuid.New())
	entry := s.newEntry(actor, audit.ActionTransferApproved)

	entryID, err := s.store.Append(s.ctx, entry)
	s.Require().NoError(err)

	got, err := s.store.Get(s.ctx, entryID)
	s.Require().NoError(err)
	s.Equal(entry.Action, got.Action)
	s.Equal(actor, got.Actor)
	s.Equal(entry.Payload, got.Payload)

	_, err = s.store.Get(s.ctx, 999)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByActor() {
	writerA := id.PrincipalID(uuid.New())
	writerB := id.PrincipalID(uuid.New())

	_, err := s.store.Append(s.ctx, s.newEntry(writerA, audit.ActionTransferProposed))
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, s.newEntry(writerB, audit.ActionTransferRejected))
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, s.newEntry(writerA, audit.ActionTransferCompleted))
	s.Require().NoError(err)

	entries, err := s.store.ListByActor(s.ctx, writerA)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Less(entries[0].ID, entries[1].ID)
	for _, e := range entries {
		s.Equal(writerA, e.Actor)
	}
}

// TestAppendJoinsAmbientTransaction verifies an append made inside a rolled
// back transaction leaves no trace, and a committed one is visible.
func (s *PostgresStoreSuite) TestAppendJoinsAmbientTransaction() {
	actor := id.PrincipalID(uuid.New())

	rollbackTx, err := s.postgres.DB.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	_, err = s.store.Append(tx.With(s.ctx, rollbackTx), s.newEntry(actor, audit.ActionTransferProposed))
	s.Require().NoError(err)
	s.Require().NoError(rollbackTx.Rollback())

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(0), count)

	commitTx, err := s.postgres.DB.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	entryID, err := s.store.Append(tx.With(s.ctx, commitTx), s.newEntry(actor, audit.ActionTransferProposed))
	s.Require().NoError(err)
	s.Require().NoError(commitTx.Commit())

	got, err := s.store.Get(s.ctx, entryID)
	s.Require().NoError(err)
	s.Equal(actor, got.Actor)
}

// TestConcurrentAppendsStayDense runs appenders in parallel, as moves on
// different items do, and verifies no entry is lost to an ID collision.
func (s *PostgresStoreSuite) TestConcurrentAppendsStayDense() {
	const appenders = 16
	actor := id.PrincipalID(uuid.New())

	var group errgroup.Group
	for i := 0; i < appenders; i++ {
		group.Go(func() error {
			_, err := s.store.Append(s.ctx, s.newEntry(actor, audit.ActionFragmentsMoved))
			return err
		})
	}
	s.Require().NoError(group.Wait())

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(appenders), count)

	entries, err := s.store.Range(s.ctx, 1, appenders)
	s.Require().NoError(err)
	s.Require().Len(entries, appenders)
	for i, e := range entries {
		s.Equal(id.AuditEntryID(i+1), e.ID)
	}
}
