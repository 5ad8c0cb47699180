package identity

import "context"

// ReferenceRepository reads the authoritative patient reference table,
// consumed read-only by the resolver.
type ReferenceRepository interface {
	ListActive(ctx context.Context) ([]PatientRef, error)
}

// AnnotationRepository persists the per-line resolution outcomes so every
// decision, including the winning strategy, stays auditable.
type AnnotationRepository interface {
	ReplaceBillingAnnotations(ctx context.Context, annotations []Annotation) error
}
