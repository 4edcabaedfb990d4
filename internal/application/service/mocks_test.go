package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// Mock repositories keep rows in memory; the *Func fields override the default behaviour

type mockApplicationRepo struct {
	mu      sync.Mutex
	apps    map[int64]*entity.Application
	updates int

	getByIDFunc func(ctx context.Context, id int64) (*entity.Application, error)
	casFunc     func(ctx context.Context, update port.StatusUpdate) error
}

func newMockApplicationRepo(apps ...*entity.Application) *mockApplicationRepo {
	m := &mockApplicationRepo{apps: make(map[int64]*entity.Application)}
	for _, app := range apps {
		m.apps[app.ID] = app
	}
	return m
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *entity.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var maxID int64
	for id, existing := range m.apps {
		if existing.ReferenceNo != "" && existing.ReferenceNo == app.ReferenceNo {
			return port.ErrDuplicateEntry
		}
		if id > maxID {
			maxID = id
		}
	}
	app.ID = maxID + 1
	clone := *app
	m.apps[app.ID] = &clone
	return nil
}

func (m *mockApplicationRepo) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	clone := *app
	return &clone, nil
}

func (m *mockApplicationRepo) ListByDomain(ctx context.Context, domain workflow.Domain) ([]*entity.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Application
	for _, app := range m.apps {
		if app.Domain == domain {
			clone := *app
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockApplicationRepo) ListByProgram(ctx context.Context, programID string) ([]*entity.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Application
	for _, app := range m.apps {
		if app.ProgramID == programID {
			clone := *app
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockApplicationRepo) CompareAndSetStatus(ctx context.Context, update port.StatusUpdate) error {
	if m.casFunc != nil {
		if err := m.casFunc(ctx, update); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[update.ID]
	if !ok || app.Status != update.ExpectedStatus {
		return port.ErrStaleStatus
	}
	app.Status = update.NewStatus
	app.DenialReason = update.DenialReason
	app.ProcessedAt = update.ProcessedAt
	m.updates++
	return nil
}

func (m *mockApplicationRepo) status(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apps[id].Status
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	entries []*entity.StatusHistoryEntry
}

func (m *mockHistoryRepo) Append(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistoryRepo) ListBySubject(ctx context.Context, subject string, subjectID int64) ([]*entity.StatusHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.StatusHistoryEntry
	for _, e := range m.entries {
		if e.Subject == subject && e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockHistoryRepo) count(subject string, id int64) int {
	entries, _ := m.ListBySubject(context.Background(), subject, id)
	return len(entries)
}

type mockDocumentRepo struct {
	mu   sync.Mutex
	docs []*entity.Document

	createFunc func(ctx context.Context, doc *entity.Document) error
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, doc)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.ID = int64(len(m.docs) + 1)
	m.docs = append(m.docs, doc)
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (m *mockDocumentRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Document
	for _, d := range m.docs {
		if d.ApplicationID == applicationID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) LatestVersion(ctx context.Context, applicationID int64, docType string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := 0
	for _, d := range m.docs {
		if d.ApplicationID == applicationID && d.DocType == docType && d.Version > latest {
			latest = d.Version
		}
	}
	return latest, nil
}

func (m *mockDocumentRepo) ClearCurrent(ctx context.Context, applicationID int64, docType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ApplicationID == applicationID && d.DocType == docType {
			d.IsCurrent = false
		}
	}
	return nil
}

func (m *mockDocumentRepo) UpdateVerification(ctx context.Context, id int64, status, remarks, verifiedBy string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == id {
			d.VerificationStatus = status
		}
	}
	return nil
}

func (m *mockDocumentRepo) add(appID int64, docTypes ...string) {
	for _, docType := range docTypes {
		_ = m.Create(context.Background(), &entity.Document{
			ApplicationID:      appID,
			DocType:            docType,
			Version:            1,
			VerificationStatus: entity.DocumentStatusApproved,
			IsCurrent:          true,
		})
	}
}

type mockBeneficiaryRepo struct {
	mu            sync.Mutex
	beneficiaries map[int64]*entity.Beneficiary
}

func newMockBeneficiaryRepo(bs ...*entity.Beneficiary) *mockBeneficiaryRepo {
	m := &mockBeneficiaryRepo{beneficiaries: make(map[int64]*entity.Beneficiary)}
	for _, b := range bs {
		m.beneficiaries[b.ID] = b
	}
	return m
}

func (m *mockBeneficiaryRepo) Create(ctx context.Context, b *entity.Beneficiary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var maxID int64
	for id := range m.beneficiaries {
		if id > maxID {
			maxID = id
		}
	}
	b.ID = maxID + 1
	clone := *b
	m.beneficiaries[b.ID] = &clone
	return nil
}

func (m *mockBeneficiaryRepo) GetByID(ctx context.Context, id int64) (*entity.Beneficiary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beneficiaries[id]
	if !ok {
		return nil, nil
	}
	clone := *b
	return &clone, nil
}

func (m *mockBeneficiaryRepo) CompareAndSetStatus(ctx context.Context, id int64, expected, next, remarks string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beneficiaries[id]
	if !ok || b.Status != expected {
		return port.ErrStaleStatus
	}
	b.Status = next
	b.Remarks = remarks
	return nil
}

func (m *mockBeneficiaryRepo) status(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beneficiaries[id].Status
}

type mockWaitlistRepo struct {
	mu      sync.Mutex
	entries []*entity.WaitlistEntry
	ranked  map[string][]entity.RankedEntry
}

func (m *mockWaitlistRepo) Create(ctx context.Context, entry *entity.WaitlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Active && e.ApplicationID == entry.ApplicationID && e.ProgramID == entry.ProgramID {
			return port.ErrDuplicateEntry
		}
	}
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockWaitlistRepo) ListActiveByProgram(ctx context.Context, programID string) ([]*entity.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.WaitlistEntry
	for _, e := range m.entries {
		if e.Active && e.ProgramID == programID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockWaitlistRepo) UpdateRanks(ctx context.Context, programID string, entries []entity.RankedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ranked == nil {
		m.ranked = make(map[string][]entity.RankedEntry)
	}
	m.ranked[programID] = append([]entity.RankedEntry(nil), entries...)
	return nil
}

func (m *mockWaitlistRepo) Deactivate(ctx context.Context, applicationID int64, programID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Active && e.ApplicationID == applicationID && e.ProgramID == programID {
			e.Active = false
			return true, nil
		}
	}
	return false, nil
}

func (m *mockWaitlistRepo) activeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Active {
			n++
		}
	}
	return n
}

// mockTxManager runs fn directly; rollback is not simulated
type mockTxManager struct {
	calls int
	mu    sync.Mutex
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return fn(ctx)
}

type mockNotifier struct {
	mu      sync.Mutex
	changes []port.StatusChange
	ranked  []string
}

func (m *mockNotifier) StatusChanged(ctx context.Context, change port.StatusChange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, change)
}

func (m *mockNotifier) WaitlistRanked(ctx context.Context, programID string, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ranked = append(m.ranked, programID)
}

type mockMetrics struct {
	mu             sync.Mutex
	accepted       int
	rejected       map[string]int
	determinations map[string]int
	inserts        map[bool]int
	retries        int
	recomputes     int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		rejected:       make(map[string]int),
		determinations: make(map[string]int),
		inserts:        make(map[bool]int),
	}
}

func (m *mockMetrics) TransitionAccepted(domain workflow.Domain, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
}

func (m *mockMetrics) TransitionRejected(domain workflow.Domain, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *mockMetrics) EligibilityDetermined(determination string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.determinations[determination]++
}

func (m *mockMetrics) WaitlistInsert(programID string, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts[created]++
}

func (m *mockMetrics) ConflictRetry(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *mockMetrics) RankingRecomputed(programID string, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputes++
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
