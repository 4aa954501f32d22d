package spc

// ToDict returns the requested fields keyed by name, computing derived ones as needed. With
// no fields it returns all six. max_level maps to an int and every other field to a
// *device.Tensor. Every name is checked before anything is computed.
func (s *SPC) ToDict(fields ...Field) (map[Field]any, error) {
	if len(fields) == 0 {
		fields = Fields
	}
	for _, f := range fields {
		if _, err := ParseField(string(f)); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Field]any, len(fields))
	for _, f := range fields {
		v, err := s.fieldLocked(f)
		if err != nil {
			return nil, err
		}
		out[f] = v
	}
	return out, nil
}

func (s *SPC) fieldLocked(f Field) (any, error) {
	switch f {
	case FieldOctrees:
		return s.octrees, nil
	case FieldLengths:
		return s.lengths, nil
	case FieldMaxLevel:
		return s.maxLevelLocked()
	case FieldPyramids:
		if err := s.ensurePyramidsLocked(); err != nil {
			return nil, err
		}
		return s.pyramids, nil
	case FieldExsum:
		if err := s.ensureExsumLocked(); err != nil {
			return nil, err
		}
		return s.exsum, nil
	case FieldPointHierarchies:
		if err := s.ensurePointsLocked(); err != nil {
			return nil, err
		}
		return s.pointHierarchies, nil
	}
	return nil, &UnknownFieldError{Name: string(f)}
}
