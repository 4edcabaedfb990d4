package screening

import (
	"fmt"
	"strings"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// Manifest lists what an application must carry before it can progress.
// An empty Stage applies to every status of the domain.
type Manifest struct {
	Domain            workflow.Domain
	Stage             string
	RequiredFields    []string
	RequiredDocuments []string
	CriticalDocuments []string
}

type manifestKey struct {
	domain workflow.Domain
	stage  string
}

// ReadinessChecker evaluates applications against their document manifests
type ReadinessChecker struct {
	manifests map[manifestKey]Manifest
}

// NewReadinessChecker indexes manifests by domain and stage
func NewReadinessChecker(manifests []Manifest) (*ReadinessChecker, error) {
	c := &ReadinessChecker{manifests: make(map[manifestKey]Manifest, len(manifests))}
	for _, m := range manifests {
		key := manifestKey{domain: m.Domain, stage: m.Stage}
		if _, exists := c.manifests[key]; exists {
			return nil, workflow.NewConfigurationError(m.Domain.String(), "manifest for stage %q declared twice", m.Stage)
		}
		c.manifests[key] = m
	}
	return c, nil
}

// Manifest returns the manifest for a stage, falling back to the domain-wide one
func (c *ReadinessChecker) Manifest(domain workflow.Domain, stage string) (Manifest, error) {
	if m, ok := c.manifests[manifestKey{domain: domain, stage: stage}]; ok {
		return m, nil
	}
	if m, ok := c.manifests[manifestKey{domain: domain}]; ok {
		return m, nil
	}
	return Manifest{}, workflow.NewConfigurationError(domain.String(), "no document manifest")
}

// Check evaluates readiness. Only current document versions count, and a
// rejected current version counts as missing. Precedence is
// has_duplicates > missing_documents > incomplete > ready.
func (c *ReadinessChecker) Check(app *entity.Application, stage string, docs []*entity.Document, duplicates *entity.DuplicateResult) (*entity.ValidationResult, error) {
	manifest, err := c.Manifest(app.Domain, stage)
	if err != nil {
		return nil, err
	}

	result := &entity.ValidationResult{
		MissingFields:            []string{},
		MissingDocuments:         []string{},
		MissingCriticalDocuments: []string{},
		DuplicateWarnings:        []entity.DuplicateMatch{},
		ValidationErrors:         []string{},
	}

	for _, field := range manifest.RequiredFields {
		if app.Attributes.IsEmpty(field) {
			result.MissingFields = append(result.MissingFields, field)
		}
	}

	current := make(map[string]*entity.Document)
	for _, doc := range docs {
		if doc == nil || !doc.IsCurrent || doc.ApplicationID != app.ID {
			continue
		}
		current[doc.DocType] = doc
	}

	seen := make(map[string]bool)
	for _, docType := range append(append([]string{}, manifest.RequiredDocuments...), manifest.CriticalDocuments...) {
		if seen[docType] {
			continue
		}
		seen[docType] = true

		doc, ok := current[docType]
		if ok && !doc.IsRejected() {
			continue
		}
		result.MissingDocuments = append(result.MissingDocuments, docType)
		if ok {
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("document %s version %d was rejected", docType, doc.Version))
		}
		if isCritical(manifest, docType) {
			result.MissingCriticalDocuments = append(result.MissingCriticalDocuments, docType)
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("critical document %s is not on file", docType))
		}
	}

	if duplicates != nil {
		result.DuplicateWarnings = append(result.DuplicateWarnings, duplicates.PotentialDuplicates...)
	}

	switch {
	case duplicates.HasConfirmed():
		result.ReadinessStatus = entity.ReadinessHasDuplicates
		for _, m := range duplicates.PotentialDuplicates {
			if m.MatchType == entity.MatchConfirmed {
				result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("confirmed duplicate of application %s", m.ReferenceNo))
			}
		}
	case len(result.MissingDocuments) > 0:
		result.ReadinessStatus = entity.ReadinessMissingDocuments
	case len(result.MissingFields) > 0:
		result.ReadinessStatus = entity.ReadinessIncomplete
	default:
		result.ReadinessStatus = entity.ReadinessReady
	}

	result.IsValid = result.ReadinessStatus == entity.ReadinessReady
	result.Summary = summarize(result)
	return result, nil
}

func isCritical(m Manifest, docType string) bool {
	for _, critical := range m.CriticalDocuments {
		if critical == docType {
			return true
		}
	}
	return false
}

func summarize(r *entity.ValidationResult) string {
	var parts []string
	if len(r.DuplicateWarnings) > 0 {
		parts = append(parts, fmt.Sprintf("%d possible duplicate(s)", len(r.DuplicateWarnings)))
	}
	if len(r.MissingDocuments) > 0 {
		parts = append(parts, "missing documents: "+strings.Join(r.MissingDocuments, ", "))
	}
	if len(r.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(r.MissingFields, ", "))
	}
	if len(parts) == 0 {
		return "application is ready"
	}
	return r.ReadinessStatus + ": " + strings.Join(parts, "; ")
}
