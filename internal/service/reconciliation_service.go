package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/export"
)

const (
	reconCachePrefix = "recon"
	allSemesters     = "all"
)

type reconciliationStore interface {
	Snapshot(ctx context.Context, hostelID, semesterID string) (*models.ReconciliationSnapshot, error)
}

type semesterReader interface {
	Current(ctx context.Context, hostelID string) (*models.Semester, error)
}

// summaryCache is the read-path cache. It is never consulted by writers.
type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// ReportDocument is a rendered collection report.
type ReportDocument struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReconciliationService folds bookings, booking payments and ledger payments into one
// collected/outstanding view per scope without counting mirrored payments twice.
type ReconciliationService struct {
	store     reconciliationStore
	semesters semesterReader
	cache     summaryCache
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time

	// generations counts invalidations per hostel. A read only fills the cache when no
	// invalidation landed while it was building the snapshot.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewReconciliationService constructs ReconciliationService. cache may be nil.
func NewReconciliationService(store reconciliationStore, semesters semesterReader, cache summaryCache, ttl time.Duration, logger *zap.Logger) *ReconciliationService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		store:       store,
		semesters:   semesters,
		cache:       cache,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
		generations: make(map[string]uint64),
	}
}

// Summary returns the collection summary of a hostel for a semester. An empty semesterID
// means the hostel's current semester, or every semester when none is current. The boolean
// reports a cache hit.
func (s *ReconciliationService) Summary(ctx context.Context, hostelID, semesterID string) (*dto.CollectionSummary, bool, error) {
	if hostelID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "hostel id is required")
	}
	semesterID, err := s.resolveSemester(ctx, hostelID, semesterID)
	if err != nil {
		return nil, false, err
	}

	key := summaryCacheKey(hostelID, semesterID)
	if s.cache != nil {
		var cached dto.CollectionSummary
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	generation := s.generation(hostelID)
	snapshot, err := s.store.Snapshot(ctx, hostelID, semesterID)
	if err != nil {
		return nil, false, wrapStoreError(err, "failed to load reconciliation data")
	}
	summary := BuildCollectionSummary(snapshot, s.now().UTC())

	if s.cache != nil && s.generation(hostelID) == generation {
		_ = s.cache.Set(ctx, key, summary, s.ttl)
	}
	return summary, false, nil
}

// RoomSummary narrows a hostel summary to the students of one room.
func (s *ReconciliationService) RoomSummary(ctx context.Context, hostelID, semesterID, roomID string) (*dto.CollectionSummary, error) {
	if roomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room id is required")
	}
	summary, _, err := s.Summary(ctx, hostelID, semesterID)
	if err != nil {
		return nil, err
	}
	var entities []dto.EntityBalance
	for _, entity := range summary.Entities {
		if entity.RoomID == roomID {
			entities = append(entities, entity)
		}
	}
	view := summarise(entities, summary.DedupMode)
	view.HostelID = summary.HostelID
	view.SemesterID = summary.SemesterID
	view.RoomID = roomID
	view.Gaps = summary.Gaps
	view.GeneratedAt = summary.GeneratedAt
	return view, nil
}

// StudentBalance returns a single resident or booking entity.
func (s *ReconciliationService) StudentBalance(ctx context.Context, hostelID, semesterID, entityID string) (*dto.EntityBalance, error) {
	if entityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entity id is required")
	}
	summary, _, err := s.Summary(ctx, hostelID, semesterID)
	if err != nil {
		return nil, err
	}
	for i := range summary.Entities {
		entity := summary.Entities[i]
		if entity.EntityID == entityID {
			return &entity, nil
		}
		for _, bookingID := range entity.BookingIDs {
			if bookingID == entityID {
				return &entity, nil
			}
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in scope")
}

// Export renders the hostel summary in the requested format.
func (s *ReconciliationService) Export(ctx context.Context, hostelID, semesterID, format string) (*ReportDocument, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	summary, _, err := s.Summary(ctx, hostelID, semesterID)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(collectionDataset(summary))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	scope := summary.SemesterID
	if scope == "" {
		scope = allSemesters
	}
	return &ReportDocument{
		Filename:    fmt.Sprintf("collections-%s-%s.%s", summary.HostelID, scope, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// Invalidate drops every cached summary of the hostel. Failures are logged; the short TTL bounds
// staleness.
func (s *ReconciliationService) Invalidate(ctx context.Context, hostelID string) {
	if s == nil || hostelID == "" {
		return
	}
	s.mu.Lock()
	s.generations[hostelID]++
	s.mu.Unlock()
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("%s:%s:*", reconCachePrefix, hostelID)); err != nil {
		s.logger.Warn("reconciliation cache invalidation failed", zap.String("hostel_id", hostelID), zap.Error(err))
	}
}

func (s *ReconciliationService) generation(hostelID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[hostelID]
}

func (s *ReconciliationService) resolveSemester(ctx context.Context, hostelID, semesterID string) (string, error) {
	if semesterID != "" || s.semesters == nil {
		return semesterID, nil
	}
	current, err := s.semesters.Current(ctx, hostelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", wrapStoreError(err, "failed to resolve current semester")
	}
	if current == nil {
		return "", nil
	}
	return current.ID, nil
}

func summaryCacheKey(hostelID, semesterID string) string {
	if semesterID == "" {
		semesterID = allSemesters
	}
	return fmt.Sprintf("%s:%s:%s", reconCachePrefix, hostelID, semesterID)
}

type residentAccumulator struct {
	entity      *dto.EntityBalance
	assigned    bool
	ledger      map[string]decimal.Decimal
	ledgerTotal decimal.Decimal
	mirrored    decimal.Decimal
	booking     map[string]decimal.Decimal
}

// BuildCollectionSummary computes a summary from a snapshot.
//
// Booking payments of a checked-in booking belong to its resident; every other booking is its own
// entity. Ledger rows mirrored from booking payments are duplicates of money already counted on
// the booking side. With source references they are known exactly; otherwise each resident's
// duplicate is capped at min(ledger, checked-in booking payments).
func BuildCollectionSummary(snap *models.ReconciliationSnapshot, now time.Time) *dto.CollectionSummary {
	bookingMoney := make(map[string]map[string]decimal.Decimal)
	bookingTotal := decimal.Zero
	for _, row := range snap.BookingPayments {
		methods, ok := bookingMoney[row.BookingID]
		if !ok {
			methods = make(map[string]decimal.Decimal)
			bookingMoney[row.BookingID] = methods
		}
		methods[methodKey(row.Method)] = methods[methodKey(row.Method)].Add(row.Amount)
		bookingTotal = bookingTotal.Add(row.Amount)
	}

	residents := make(map[string]*residentAccumulator)
	resident := func(id string) *residentAccumulator {
		acc, ok := residents[id]
		if !ok {
			acc = &residentAccumulator{
				entity:  &dto.EntityBalance{EntityID: id, EntityType: dto.EntityResident},
				ledger:  make(map[string]decimal.Decimal),
				booking: make(map[string]decimal.Decimal),
			}
			residents[id] = acc
		}
		return acc
	}

	for _, a := range snap.Assignments {
		acc := resident(a.ResidentID)
		acc.assigned = true
		acc.entity.Expected = acc.entity.Expected.Add(a.Expected)
		if acc.entity.RoomID == "" {
			acc.entity.RoomID = a.RoomID
		}
		setIdentity(acc.entity, a.FullName, a.Email)
	}

	var bookingEntities []dto.EntityBalance
	for _, b := range snap.Bookings {
		if b.Status == models.BookingStatusCheckedIn && b.ResidentID != nil {
			acc := resident(*b.ResidentID)
			acc.entity.BookingIDs = append(acc.entity.BookingIDs, b.ID)
			setIdentity(acc.entity, b.StudentName, b.StudentEmail)
			if acc.entity.RoomID == "" && b.RoomID != nil {
				acc.entity.RoomID = *b.RoomID
			}
			for method, amount := range bookingMoney[b.ID] {
				acc.booking[method] = acc.booking[method].Add(amount)
				acc.entity.BookingPaid = acc.entity.BookingPaid.Add(amount)
			}
			continue
		}

		entity := dto.EntityBalance{
			EntityID:   b.ID,
			EntityType: dto.EntityBooking,
			Name:       b.StudentName,
			Email:      b.StudentEmail,
			BookingIDs: []string{b.ID},
			Methods:    make(map[string]decimal.Decimal),
		}
		if b.RoomID != nil {
			entity.RoomID = *b.RoomID
		}
		if b.Status != models.BookingStatusCancelled {
			entity.Expected = b.AmountDue
		}
		for method, amount := range bookingMoney[b.ID] {
			entity.Methods[method] = amount
			entity.BookingPaid = entity.BookingPaid.Add(amount)
		}
		entity.Paid = entity.BookingPaid
		entity.Balance = models.Outstanding(entity.Expected, entity.Paid)
		assigned := entity.RoomID != "" && b.Status != models.BookingStatusCancelled
		entity.Status = balanceStatus(assigned, entity.Paid, entity.Balance)
		bookingEntities = append(bookingEntities, entity)
	}

	ledgerTotal := decimal.Zero
	for _, row := range snap.Ledger {
		acc := resident(row.ResidentID)
		ledgerTotal = ledgerTotal.Add(row.Amount)
		acc.ledgerTotal = acc.ledgerTotal.Add(row.Amount)
		if row.Mirrored && snap.Mode == models.DedupSourceRef {
			acc.mirrored = acc.mirrored.Add(row.Amount)
			continue
		}
		acc.ledger[methodKey(row.Method)] = acc.ledger[methodKey(row.Method)].Add(row.Amount)
	}

	names := make(map[string]models.ReconResident, len(snap.Residents))
	for _, r := range snap.Residents {
		names[r.ID] = r
	}

	duplicated := decimal.Zero
	entities := make([]dto.EntityBalance, 0, len(residents)+len(bookingEntities))
	for id, acc := range residents {
		entity := acc.entity
		if r, ok := names[id]; ok {
			setIdentity(entity, r.FullName, r.Email)
		}

		dup := acc.mirrored
		if snap.Mode == models.DedupIdentity {
			dup = decimalMin(acc.ledgerTotal, entity.BookingPaid)
			deduct(acc.ledger, dup)
		}
		duplicated = duplicated.Add(dup)

		entity.LedgerPaid = acc.ledgerTotal
		entity.Duplicated = dup
		entity.Paid = acc.ledgerTotal.Sub(dup).Add(entity.BookingPaid)
		entity.Methods = make(map[string]decimal.Decimal)
		for method, amount := range acc.ledger {
			entity.Methods[method] = entity.Methods[method].Add(amount)
		}
		for method, amount := range acc.booking {
			entity.Methods[method] = entity.Methods[method].Add(amount)
		}
		reconcileMethods(entity.Methods, entity.Paid)
		entity.Balance = models.Outstanding(entity.Expected, entity.Paid)
		entity.Status = balanceStatus(acc.assigned, entity.Paid, entity.Balance)
		entities = append(entities, *entity)
	}
	entities = append(entities, bookingEntities...)
	sortEntities(entities)

	summary := summarise(entities, string(snap.Mode))
	summary.HostelID = snap.HostelID
	summary.SemesterID = snap.SemesterID
	summary.BookingTotal = bookingTotal
	summary.LedgerTotal = ledgerTotal
	summary.Duplicated = duplicated
	summary.Gaps = snap.Gaps
	if !snap.SemesterScoped && snap.SemesterID != "" {
		summary.Gaps = append(append([]string(nil), snap.Gaps...), "ledger payments are not semester scoped; hostel-wide ledger totals are used")
	}
	summary.GeneratedAt = now
	return summary
}

// summarise totals a set of entities. Collected is the sum of entity payments, which equals
// booking total + ledger total - duplicated for a full scope.
func summarise(entities []dto.EntityBalance, mode string) *dto.CollectionSummary {
	summary := &dto.CollectionSummary{
		TotalExpected:    decimal.Zero,
		TotalCollected:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		BookingTotal:     decimal.Zero,
		LedgerTotal:      decimal.Zero,
		Duplicated:       decimal.Zero,
		DedupMode:        mode,
		Entities:         entities,
	}
	if summary.Entities == nil {
		summary.Entities = []dto.EntityBalance{}
	}
	methods := make(map[string]decimal.Decimal)
	for _, e := range entities {
		summary.TotalExpected = summary.TotalExpected.Add(e.Expected)
		summary.TotalCollected = summary.TotalCollected.Add(e.Paid)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(e.Balance)
		summary.BookingTotal = summary.BookingTotal.Add(e.BookingPaid)
		summary.LedgerTotal = summary.LedgerTotal.Add(e.LedgerPaid)
		summary.Duplicated = summary.Duplicated.Add(e.Duplicated)
		for method, amount := range e.Methods {
			methods[method] = methods[method].Add(amount)
		}
	}
	reconcileMethods(methods, summary.TotalCollected)
	summary.Methods = sortedMethods(methods)
	return summary
}

// reconcileMethods books whatever the method buckets do not explain into the unspecified bucket.
func reconcileMethods(methods map[string]decimal.Decimal, paid decimal.Decimal) {
	sum := decimal.Zero
	for _, amount := range methods {
		sum = sum.Add(amount)
	}
	if residual := paid.Sub(sum); !residual.IsZero() {
		key := string(models.PaymentMethodUnspecified)
		methods[key] = methods[key].Add(residual)
	}
	for method, amount := range methods {
		if amount.IsZero() {
			delete(methods, method)
		}
	}
}

// deduct removes amount from the buckets, unspecified money first, then methods in name order.
func deduct(methods map[string]decimal.Decimal, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	keys := make([]string, 0, len(methods))
	for method := range methods {
		if method != string(models.PaymentMethodUnspecified) {
			keys = append(keys, method)
		}
	}
	sort.Strings(keys)
	keys = append([]string{string(models.PaymentMethodUnspecified)}, keys...)
	for _, method := range keys {
		if !amount.IsPositive() {
			return
		}
		take := decimalMin(methods[method], amount)
		if !take.IsPositive() {
			continue
		}
		methods[method] = methods[method].Sub(take)
		amount = amount.Sub(take)
	}
}

func balanceStatus(assigned bool, paid, balance decimal.Decimal) dto.BalanceStatus {
	switch {
	case !assigned:
		return dto.BalanceUnassigned
	case balance.IsZero():
		return dto.BalancePaid
	case paid.IsZero():
		return dto.BalanceUnpaid
	default:
		return dto.BalancePartial
	}
}

func setIdentity(entity *dto.EntityBalance, name, email string) {
	if entity.Name == "" {
		entity.Name = name
	}
	if entity.Email == "" {
		entity.Email = email
	}
}

func methodKey(method models.PaymentMethod) string {
	if method == "" {
		return string(models.PaymentMethodUnspecified)
	}
	return string(method)
}

func sortedMethods(methods map[string]decimal.Decimal) []dto.MethodTotal {
	out := make([]dto.MethodTotal, 0, len(methods))
	for method, amount := range methods {
		out = append(out, dto.MethodTotal{Method: method, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

func sortEntities(entities []dto.EntityBalance) {
	sort.SliceStable(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if a.EntityType != b.EntityType {
			return a.EntityType == dto.EntityResident
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.EntityID < b.EntityID
	})
}

func collectionDataset(summary *dto.CollectionSummary) export.Dataset {
	semester := summary.SemesterID
	if semester == "" {
		semester = allSemesters
	}
	data := export.Dataset{
		Title: "Collection Summary",
		Summary: []export.Field{
			{Label: "Hostel", Value: summary.HostelID},
			{Label: "Semester", Value: semester},
			{Label: "Expected", Value: summary.TotalExpected.StringFixed(2)},
			{Label: "Collected", Value: summary.TotalCollected.StringFixed(2)},
			{Label: "Outstanding", Value: summary.TotalOutstanding.StringFixed(2)},
			{Label: "Generated", Value: summary.GeneratedAt.Format(time.RFC3339)},
		},
		Headers: []string{"Type", "Name", "Email", "Room", "Expected", "Paid", "Balance", "Status"},
	}
	for _, m := range summary.Methods {
		data.Summary = append(data.Summary, export.Field{Label: "Method " + m.Method, Value: m.Amount.StringFixed(2)})
	}
	for _, e := range summary.Entities {
		data.Rows = append(data.Rows, map[string]string{
			"Type":     string(e.EntityType),
			"Name":     e.Name,
			"Email":    e.Email,
			"Room":     e.RoomID,
			"Expected": e.Expected.StringFixed(2),
			"Paid":     e.Paid.StringFixed(2),
			"Balance":  e.Balance.StringFixed(2),
			"Status":   string(e.Status),
		})
	}
	return data
}
