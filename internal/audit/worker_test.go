package audit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"provena/internal/audit"
	id "provena/pkg/domain"
)

type capturingPublisher struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (p *capturingPublisher) Publish(_ context.Context, entry audit.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) published() []audit.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]audit.Entry(nil), p.entries...)
}

type WorkerSuite struct {
	suite.Suite
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) TestForwardsEntries() {
	publisher := &capturingPublisher{}
	inbox := make(chan audit.Entry, 4)
	worker := audit.NewWorker(publisher, inbox, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- audit.Entry{ID: id.AuditEntryID(1), Action: audit.ActionTransferProposed}
	inbox <- audit.Entry{ID: id.AuditEntryID(2), Action: audit.ActionTransferApproved}

	s.Eventually(func() bool { return len(publisher.published()) == 2 },
		time.Second, 5*time.Millisecond)

	cancel()
	s.Require().NoError(<-done)
	s.Equal(id.AuditEntryID(1), publisher.published()[0].ID)
}

// Shutdown travels through the same errgroup composition the server uses; a
// cancelled context must not surface as an error from Wait.
func (s *WorkerSuite) TestShutdownIsNotAnError() {
	publisher := &capturingPublisher{}
	inbox := make(chan audit.Entry)
	worker := audit.NewWorker(publisher, inbox, nil)

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return worker.Run(ctx) })

	cancel()
	s.Require().NoError(group.Wait())
}
