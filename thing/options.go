package thing

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DeletePolicy selects how Service.Delete interprets the existence check.
type DeletePolicy int

const (
	// DeleteExisting removes a record that exists and reports true; an
	// absent record reports false.
	DeleteExisting DeletePolicy = iota

	// DeleteLegacyInverted keeps the legacy inverted check: a record that
	// exists is left in place and reported as false, while an absent id is
	// "deleted" and reported as true.
	DeleteLegacyInverted
)

func (p DeletePolicy) String() string {
	switch p {
	case DeleteExisting:
		return "delete-existing"
	case DeleteLegacyInverted:
		return "legacy-inverted"
	default:
		return fmt.Sprintf("DeletePolicy(%d)", int(p))
	}
}

// Option configures a Service.
type Option func(*Service)

// WithDeletePolicy sets the delete policy. The default is DeleteExisting.
func WithDeletePolicy(policy DeletePolicy) Option {
	return func(s *Service) {
		s.deletePolicy = policy
	}
}

// WithLogger sets the logger used for per-call debug records.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCheckThenAct disables the repository's conditional writes so every
// mutation runs an existence check first.
func WithCheckThenAct() Option {
	return func(s *Service) {
		s.conditional = nil
	}
}
