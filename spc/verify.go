package spc

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/spc/device"
)

// Verify recomputes every populated derived field from the octrees and reports each one
// that differs, combined into a single ErrInconsistentIndex. Errors from walking the
// octrees themselves, such as ErrMalformedOctree, are returned as is.
func (s *SPC) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxLevel == nil && s.pyramids == nil && s.exsum == nil && s.pointHierarchies == nil {
		return nil
	}

	maxLevel, pyramids, err := BuildPyramids(s.dev, s.octrees, s.lengths)
	if err != nil {
		return err
	}
	exsum, err := BuildExsum(s.dev, s.octrees, s.lengths)
	if err != nil {
		return err
	}

	var errs error
	if s.maxLevel != nil && *s.maxLevel != maxLevel {
		errs = multierr.Append(errs, errors.Errorf("max_level is %d, recomputed %d", *s.maxLevel, maxLevel))
	}
	errs = multierr.Append(errs, compareField(FieldPyramids, s.pyramids, pyramids))
	errs = multierr.Append(errs, compareField(FieldExsum, s.exsum, exsum))
	if s.pointHierarchies != nil {
		points, err := BuildPointHierarchies(s.dev, s.octrees, s.lengths, maxLevel, pyramids, exsum)
		if err != nil {
			return err
		}
		errs = multierr.Append(errs, compareField(FieldPointHierarchies, s.pointHierarchies, points))
	}
	if errs != nil {
		s.logger.Debugw("verification failed", "mismatches", len(multierr.Errors(errs)))
		return errors.Wrap(ErrInconsistentIndex, errs.Error())
	}
	return nil
}

func compareField(f Field, stored, recomputed *device.Tensor) error {
	if stored == nil || stored.Equal(recomputed) {
		return nil
	}
	return errors.Errorf("%s differs from the value recomputed from the octrees", f)
}
