package scope

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"conduit/internal/domain"
	dErrors "conduit/pkg/domain-errors"
)

type MemoryWorkspaceStoreSuite struct {
	suite.Suite
	store *MemoryWorkspaceStore
	ctx   context.Context
}

func TestMemoryWorkspaceStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryWorkspaceStoreSuite))
}

func (s *MemoryWorkspaceStoreSuite) SetupTest() {
	s.store = NewMemoryWorkspaceStore()
	s.ctx = context.Background()
	s.Require().NoError(s.store.Create(s.ctx, domain.Workspace{ID: "ws-1", OwnerID: "u-owner"}))
}

func (s *MemoryWorkspaceStoreSuite) TestFindMissingReturnsNotFound() {
	_, err := s.store.Find(s.ctx, "ws-missing")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MemoryWorkspaceStoreSuite) TestDuplicateActiveGrantRejected() {
	grant := domain.Grant{ID: "g-1", WorkspaceID: "ws-1", UserID: "u-1", Role: domain.RoleViewer, Status: domain.GrantActive}
	s.Require().NoError(s.store.CreateGrant(s.ctx, grant))

	dup := grant
	dup.ID = "g-2"
	dup.Role = domain.RoleManager
	err := s.store.CreateGrant(s.ctx, dup)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MemoryWorkspaceStoreSuite) TestRevokeThenRecreate() {
	grant := domain.Grant{ID: "g-1", WorkspaceID: "ws-1", UserID: "u-1", Role: domain.RoleViewer, Status: domain.GrantActive}
	s.Require().NoError(s.store.CreateGrant(s.ctx, grant))
	s.Require().NoError(s.store.RevokeGrant(s.ctx, "ws-1", "u-1", time.Now()))

	// A revoked grant no longer blocks a new one.
	grant.ID = "g-2"
	grant.Role = domain.RoleContributor
	s.Require().NoError(s.store.CreateGrant(s.ctx, grant))

	grants, err := s.store.ActiveGrants(s.ctx, "ws-1")
	s.Require().NoError(err)
	s.Require().Len(grants, 1)
	s.Equal(domain.RoleContributor, grants[0].Role)
}

func (s *MemoryWorkspaceStoreSuite) TestRevokeMissingGrantReturnsNotFound() {
	err := s.store.RevokeGrant(s.ctx, "ws-1", "u-nobody", time.Now())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MemoryWorkspaceStoreSuite) TestConcurrentCreateGrantOnlyOneWins() {
	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.store.CreateGrant(s.ctx, domain.Grant{
				ID: "g-race", WorkspaceID: "ws-1", UserID: "u-race",
				Role: domain.RoleViewer, Status: domain.GrantActive,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		}
	}
	s.Equal(1, succeeded, "the atomic guard admits exactly one active grant")
}
