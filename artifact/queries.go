package artifact

// Convenience queries mirror the derived lookups every attractor predicate
// and agent worker needs, sharing GetByType's complexity guarantees.

// HasErrors reports whether any active error artifact exists.
func (s *Store) HasErrors() bool {
	return s.Exists(TypeError, "", StatusActive)
}

// GetActiveErrors returns every active error artifact.
func (s *Store) GetActiveErrors() []Artifact {
	active := StatusActive
	return s.GetByType(TypeError, &active, 0)
}

// HasPreview reports whether an active preview artifact exists.
func (s *Store) HasPreview() bool {
	return s.Exists(TypePreview, "", StatusActive)
}

// GetPreviewURL returns the content of the latest active preview artifact,
// if any.
func (s *Store) GetPreviewURL() (string, bool) {
	a, ok := s.GetLatest(TypePreview, "")
	if !ok {
		return "", false
	}
	url, _ := a.Content.(string)
	return url, true
}

// BuildSucceeded reports whether the latest build artifact's metadata
// records success=true.
func (s *Store) BuildSucceeded() bool {
	build, ok := s.GetLatest(TypeBuild, "")
	if !ok {
		return false
	}
	success, _ := build.Metadata[MetaSuccess].(bool)
	return success
}

// TestsPassed reports whether the latest build artifact's metadata records
// tests_passed=true. No build at all is treated as passing (nothing to fail).
func (s *Store) TestsPassed() bool {
	build, ok := s.GetLatest(TypeBuild, "")
	if !ok {
		return true
	}
	passed, present := build.Metadata[MetaTestsPassed].(bool)
	if !present {
		return true
	}
	return passed
}

// GetFileArtifacts returns every active file artifact.
func (s *Store) GetFileArtifacts() []Artifact {
	active := StatusActive
	return s.GetByType(TypeFile, &active, 0)
}

// GetPendingPlan returns the latest plan artifact whose status metadata is
// pending_review.
func (s *Store) GetPendingPlan() (Artifact, bool) {
	plan, ok := s.GetLatest(TypePlan, "")
	if !ok {
		return Artifact{}, false
	}
	status, _ := plan.Metadata[MetaPlanStatus].(string)
	if status != PlanStatusPendingReview {
		return Artifact{}, false
	}
	return plan, true
}

// PlanApproved reports whether a plan is required and, if so, whether its
// latest version is approved. No plan at all counts as satisfied (no plan
// needed).
func (s *Store) PlanApproved() bool {
	plan, ok := s.GetLatest(TypePlan, "")
	if !ok {
		return true
	}
	status, _ := plan.Metadata[MetaPlanStatus].(string)
	return status == PlanStatusApproved
}

// CountArtifactsByType is an exported alias of CountByType matching the
// spec's naming for this query.
func (s *Store) CountArtifactsByType() map[Type]int {
	return s.CountByType()
}
