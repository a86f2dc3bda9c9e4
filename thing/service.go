package thing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"thingstore"
)

// Service is the CRUD entry point for things. It is stateless apart from the
// repository handle and safe for concurrent use when the repository is.
//
// When the repository implements thingstore.ConditionalRepository the
// existence precondition of every mutation is evaluated by the store
// atomically. Otherwise each mutation runs Exists first and then acts, and
// concurrent calls for the same id may race between the two steps.
type Service struct {
	repo         thingstore.Repository[Thing]
	conditional  thingstore.ConditionalRepository[Thing]
	deletePolicy DeletePolicy
	log          *logrus.Entry
}

// NewService creates a Service over repo.
func NewService(repo thingstore.Repository[Thing], opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		deletePolicy: DeleteExisting,
		log:          logrus.NewEntry(logrus.StandardLogger()),
	}
	if cond, ok := repo.(thingstore.ConditionalRepository[Thing]); ok {
		s.conditional = cond
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "thing.Service")
	return s
}

// DeletePolicy returns the policy Delete runs under.
func (s *Service) DeletePolicy() DeletePolicy {
	return s.deletePolicy
}

// Create stores t when no thing with the same ID exists. A duplicate ID is
// reported as false without touching the stored record.
func (s *Service) Create(ctx context.Context, t *Thing) (bool, error) {
	if err := validate(t); err != nil {
		return false, err
	}

	ok, err := s.create(ctx, t)
	if err != nil {
		return false, fmt.Errorf("create thing %q: %w", t.ID, err)
	}
	s.trace("create", t.ID, ok)
	return ok, nil
}

func (s *Service) create(ctx context.Context, t *Thing) (bool, error) {
	if s.conditional != nil {
		return s.conditional.CreateIfAbsent(ctx, t)
	}

	exists, err := s.repo.Exists(ctx, t.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.repo.Create(ctx, t); err != nil {
		// lost the race against a concurrent create of the same id
		if thingstore.IsRecordExistsError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Update replaces the stored thing with t. An unknown ID is reported as false
// and nothing is created.
func (s *Service) Update(ctx context.Context, t *Thing) (bool, error) {
	if err := validate(t); err != nil {
		return false, err
	}

	ok, err := s.update(ctx, t)
	if err != nil {
		return false, fmt.Errorf("update thing %q: %w", t.ID, err)
	}
	s.trace("update", t.ID, ok)
	return ok, nil
}

func (s *Service) update(ctx context.Context, t *Thing) (bool, error) {
	if s.conditional != nil {
		return s.conditional.UpdateIfExists(ctx, t)
	}

	exists, err := s.repo.Exists(ctx, t.ID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	if err := s.repo.Update(ctx, t); err != nil {
		if thingstore.IsRecordNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the thing with the given ID according to the service's
// DeletePolicy.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, thingstore.NewValidationErrorForField("id", id, "thing ID cannot be empty")
	}

	var (
		ok  bool
		err error
	)
	switch s.deletePolicy {
	case DeleteLegacyInverted:
		ok, err = s.deleteLegacy(ctx, id)
	default:
		ok, err = s.deleteExisting(ctx, id)
	}
	if err != nil {
		return false, fmt.Errorf("delete thing %q: %w", id, err)
	}
	s.trace("delete", id, ok)
	return ok, nil
}

func (s *Service) deleteExisting(ctx context.Context, id string) (bool, error) {
	if s.conditional != nil {
		return s.conditional.DeleteIfExists(ctx, id)
	}

	exists, err := s.repo.Exists(ctx, id)
	if err != nil || !exists {
		return false, err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// deleteLegacy: present means "refuse", absent means "delete and succeed".
func (s *Service) deleteLegacy(ctx context.Context, id string) (bool, error) {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// GetByID returns the stored thing. A missing thing is reported through
// found, never as an error.
func (s *Service) GetByID(ctx context.Context, id string) (Thing, bool, error) {
	if id == "" {
		return Thing{}, false, nil
	}

	t, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Thing{}, false, fmt.Errorf("get thing %q: %w", id, err)
	}
	s.trace("get", id, found)
	return t, found, nil
}

func (s *Service) trace(op, id string, result bool) {
	s.log.WithFields(logrus.Fields{
		"op":     op,
		"id":     id,
		"result": result,
	}).Debug("thing service call")
}

func validate(t *Thing) error {
	if t == nil {
		return thingstore.NewValidationError("thing cannot be nil")
	}
	if t.ID == "" {
		return thingstore.NewValidationErrorForField("id", t.ID, "thing ID cannot be empty")
	}
	return nil
}
