package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
)

// ReconciliationRepository reads the raw payment material of a (hostel, semester) scope. It never
// aggregates across sources; merging happens in the reconciliation service.
type ReconciliationRepository struct {
	db     *sqlx.DB
	schema schema.Resolver
}

// NewReconciliationRepository constructs ReconciliationRepository.
func NewReconciliationRepository(db *sqlx.DB, resolver schema.Resolver) *ReconciliationRepository {
	return &ReconciliationRepository{db: db, schema: resolver}
}

// Snapshot loads bookings, completed booking payments, active assignments and ledger totals of the
// scope. An empty semesterID, or a schema without the relevant semester column, widens that
// source to the whole hostel.
func (r *ReconciliationRepository) Snapshot(ctx context.Context, hostelID, semesterID string) (*models.ReconciliationSnapshot, error) {
	s, err := r.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	snap := &models.ReconciliationSnapshot{
		HostelID:       hostelID,
		SemesterID:     semesterID,
		Mode:           models.DedupIdentity,
		SemesterScoped: semesterID != "",
		Gaps:           append([]string(nil), s.Gaps...),
	}
	if s.PaymentHasSourceRef && s.HasBookingPayments {
		snap.Mode = models.DedupSourceRef
	}

	if snap.Bookings, err = r.bookings(ctx, hostelID, semesterID); err != nil {
		return nil, err
	}
	if s.HasBookingPayments {
		if snap.BookingPayments, err = r.bookingPayments(ctx, hostelID, semesterID); err != nil {
			return nil, err
		}
	}
	if s.HasAssignments {
		if snap.Assignments, err = r.assignments(ctx, s, hostelID, semesterID); err != nil {
			return nil, err
		}
	}
	if s.HasPayments {
		if snap.Ledger, err = r.ledger(ctx, s, snap.Mode, hostelID, semesterID); err != nil {
			return nil, err
		}
		if semesterID != "" && !s.PaymentHasSemester {
			snap.SemesterScoped = false
		}
	}
	if s.HasStudents {
		if snap.Residents, err = r.residents(ctx, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (r *ReconciliationRepository) bookings(ctx context.Context, hostelID, semesterID string) ([]models.ReconBooking, error) {
	query, args := schema.NewQuery(`SELECT b.id, b.student_name, b.student_email, b.room_id, b.status, b.amount_due, b.resident_id FROM bookings b`).
		Where("b.hostel_id = ?", hostelID).
		WhereIf(semesterID != "", "b.semester_id = ?", semesterID).
		Suffix("ORDER BY b.created_at, b.id").
		Build()
	var rows []models.ReconBooking
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load scope bookings: %w", err)
	}
	return rows, nil
}

func (r *ReconciliationRepository) bookingPayments(ctx context.Context, hostelID, semesterID string) ([]models.ReconBookingPayment, error) {
	query, args := schema.NewQuery(`SELECT bp.booking_id, bp.method, COALESCE(SUM(bp.amount), 0) AS amount
 FROM booking_payments bp JOIN bookings b ON b.id = bp.booking_id`).
		Where("bp.status = ?", models.PaymentRecordCompleted).
		Where("b.hostel_id = ?", hostelID).
		WhereIf(semesterID != "", "b.semester_id = ?", semesterID).
		Suffix("GROUP BY bp.booking_id, bp.method ORDER BY bp.booking_id, bp.method").
		Build()
	var rows []models.ReconBookingPayment
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load scope booking payments: %w", err)
	}
	return rows, nil
}

func (r *ReconciliationRepository) assignments(ctx context.Context, s schema.LogicalSchema, hostelID, semesterID string) ([]models.ReconAssignment, error) {
	resident := schema.Column("a", s.AssignmentResidentColumn)
	nameCols := `'' AS full_name, '' AS email`
	join := ""
	if s.HasStudents {
		nameCols = `COALESCE(st.full_name, '') AS full_name, COALESCE(st.email, '') AS email`
		join = fmt.Sprintf(" LEFT JOIN students st ON st.id = %s", resident)
	}
	base := fmt.Sprintf(`SELECT %s AS resident_id, %s, a.room_id, %s AS expected
 FROM student_room_assignments a JOIN rooms rm ON rm.id = a.room_id%s`, resident, nameCols, s.RoomPriceExpr("rm"), join)
	query, args := schema.NewQuery(base).
		Where("a.status = ?", models.AssignmentStatusActive).
		Where("rm.hostel_id = ?", hostelID).
		WhereIf(s.AssignmentHasSemester && semesterID != "", "a.semester_id = ?", semesterID).
		Suffix("ORDER BY a.assigned_at, a.id").
		Build()
	var rows []models.ReconAssignment
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load scope assignments: %w", err)
	}
	return rows, nil
}

func (r *ReconciliationRepository) ledger(ctx context.Context, s schema.LogicalSchema, mode models.DedupMode, hostelID, semesterID string) ([]models.ReconLedger, error) {
	resident := schema.Column("p", s.PaymentResidentColumn)
	method := fmt.Sprintf("'%s'", models.PaymentMethodUnspecified)
	if s.PaymentHasMethod {
		method = fmt.Sprintf("COALESCE(NULLIF(%s, ''), '%s')", schema.Column("p", s.PaymentMethodColumn), models.PaymentMethodUnspecified)
	}
	mirrored := "FALSE"
	join := ""
	if mode == models.DedupSourceRef {
		mirrored = "(bp.id IS NOT NULL)"
		join = " LEFT JOIN booking_payments bp ON bp.id = p.source_booking_payment_id AND bp.status = 'completed'"
	}
	base := fmt.Sprintf(`SELECT %s AS resident_id, %s AS method, %s AS mirrored, COALESCE(SUM(p.amount), 0) AS amount FROM payments p%s`,
		resident, method, mirrored, join)

	q := schema.NewQuery(base)
	if s.PaymentHasHostel {
		q.Where("p.hostel_id = ?", hostelID)
	} else if s.HasAssignments {
		// No hostel column: attribute rows through the resident's room assignments.
		q.Where(fmt.Sprintf(`%s IN (SELECT %s FROM student_room_assignments a JOIN rooms rm ON rm.id = a.room_id WHERE rm.hostel_id = ?)`,
			resident, schema.Column("a", s.AssignmentResidentColumn)), hostelID)
	}
	q.WhereIf(s.PaymentHasSemester && semesterID != "", "p.semester_id = ?", semesterID)
	query, args := q.Suffix("GROUP BY 1, 2, 3 ORDER BY 1, 2, 3").Build()

	var rows []models.ReconLedger
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load scope ledger: %w", err)
	}
	return rows, nil
}

func (r *ReconciliationRepository) residents(ctx context.Context, snap *models.ReconciliationSnapshot) ([]models.ReconResident, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, l := range snap.Ledger {
		add(l.ResidentID)
	}
	for _, b := range snap.Bookings {
		if b.ResidentID != nil {
			add(*b.ResidentID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.ReconResident
	const query = `SELECT id, full_name, email FROM students WHERE id::text = ANY($1)`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load scope residents: %w", err)
	}
	return rows, nil
}
