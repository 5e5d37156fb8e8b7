// Package schema negotiates which physical tables and columns the connected database exposes.
// Deployments run on different schema generations at the same time, so nothing above this
// package names a divergent column directly.
package schema

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

// Physical table names.
const (
	TableRooms           = "rooms"
	TableBookings        = "bookings"
	TableSemesters       = "semesters"
	TableBookingPayments = "booking_payments"
	TablePayments        = "payments"
	TableStudents        = "students"
	TableAssignments     = "student_room_assignments"
	TableEnrollments     = "student_semester_enrollments"
)

var (
	mandatoryTables = []string{TableRooms, TableBookings}
	optionalTables  = []string{TableSemesters, TableBookingPayments, TablePayments, TableStudents, TableAssignments, TableEnrollments}

	residentColumnCandidates = []string{"student_id", "user_id"}
	priceColumnCandidates    = []string{"price_per_semester", "price"}
	methodColumnCandidates   = []string{"payment_method", "method"}
)

// LogicalSchema is the immutable capability descriptor resolved from the live database.
type LogicalSchema struct {
	PaymentResidentColumn    string   `json:"payment_resident_column"`
	AssignmentResidentColumn string   `json:"assignment_resident_column"`
	EnrollmentResidentColumn string   `json:"enrollment_resident_column"`
	PaymentMethodColumn      string   `json:"payment_method_column"`
	RoomPriceColumn          string   `json:"room_price_column"`
	PaymentHasHostel         bool     `json:"payment_has_hostel"`
	PaymentHasSemester       bool     `json:"payment_has_semester"`
	PaymentHasSourceRef      bool     `json:"payment_has_source_ref"`
	PaymentHasMethod         bool     `json:"payment_has_method"`
	AssignmentHasSemester    bool     `json:"assignment_has_semester"`
	RoomHasOccupancy         bool     `json:"room_has_occupancy"`
	HasSemesters             bool     `json:"has_semesters"`
	HasEnrollments           bool     `json:"has_enrollments"`
	HasBookingPayments       bool     `json:"has_booking_payments"`
	HasPayments              bool     `json:"has_payments"`
	HasStudents              bool     `json:"has_students"`
	HasAssignments           bool     `json:"has_assignments"`
	Gaps                     []string `json:"gaps,omitempty"`
}

// CanRegisterResidents reports whether check-in can create resident records.
func (s LogicalSchema) CanRegisterResidents() bool {
	return s.HasStudents && s.HasAssignments && s.AssignmentResidentColumn != ""
}

// RoomPriceExpr returns the SQL expression selecting a room's semester price for the given alias.
func (s LogicalSchema) RoomPriceExpr(alias string) string {
	if s.RoomPriceColumn == "" {
		return "0::numeric"
	}
	return Column(alias, s.RoomPriceColumn)
}

// Column renders alias.column with the column quoted as an identifier.
func Column(alias, column string) string {
	if alias == "" {
		return pq.QuoteIdentifier(column)
	}
	return alias + "." + pq.QuoteIdentifier(column)
}

// Resolver yields the current logical schema.
type Resolver interface {
	Resolve(ctx context.Context) (LogicalSchema, error)
}

type columnRow struct {
	Table  string `db:"table_name"`
	Column string `db:"column_name"`
}

// Adapter probes information_schema once and caches the result until Invalidate is called.
type Adapter struct {
	db     sqlx.QueryerContext
	logger *zap.Logger

	mu       sync.Mutex
	resolved *LogicalSchema
}

// NewAdapter constructs an Adapter over the given database handle.
func NewAdapter(db sqlx.QueryerContext, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{db: db, logger: logger}
}

const probeQuery = `SELECT table_name, column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name::text = ANY($1)`

// Resolve returns the cached schema, probing the database on first use. A failed probe is not
// cached so the next call tries again.
func (a *Adapter) Resolve(ctx context.Context) (LogicalSchema, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resolved != nil {
		return a.resolved.clone(), nil
	}

	tables := append(append([]string{}, mandatoryTables...), optionalTables...)
	var rows []columnRow
	if err := sqlx.SelectContext(ctx, a.db, &rows, probeQuery, pq.Array(tables)); err != nil {
		return LogicalSchema{}, appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code, appErrors.ErrDependencyFailure.Status, "failed to inspect database schema")
	}

	resolved, err := build(rows)
	if err != nil {
		return LogicalSchema{}, err
	}
	if len(resolved.Gaps) > 0 {
		a.logger.Warn("schema capability gaps detected", zap.Strings("gaps", resolved.Gaps))
	}
	a.logger.Info("schema resolved",
		zap.String("payment_resident_column", resolved.PaymentResidentColumn),
		zap.String("room_price_column", resolved.RoomPriceColumn),
		zap.Bool("payment_has_source_ref", resolved.PaymentHasSourceRef),
	)
	a.resolved = &resolved
	return resolved.clone(), nil
}

// Invalidate drops the cached schema so the next Resolve re-probes, e.g. after a migration.
func (a *Adapter) Invalidate() {
	a.mu.Lock()
	a.resolved = nil
	a.mu.Unlock()
}

func build(rows []columnRow) (LogicalSchema, error) {
	columns := make(map[string]map[string]struct{})
	for _, row := range rows {
		if columns[row.Table] == nil {
			columns[row.Table] = make(map[string]struct{})
		}
		columns[row.Table][row.Column] = struct{}{}
	}

	var missing []string
	for _, table := range mandatoryTables {
		if _, ok := columns[table]; !ok {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return LogicalSchema{}, appErrors.Clone(appErrors.ErrDependencyFailure, fmt.Sprintf("required tables missing: %v", missing))
	}

	has := func(table, column string) bool {
		_, ok := columns[table][column]
		return ok
	}
	pick := func(table string, candidates []string) string {
		for _, c := range candidates {
			if has(table, c) {
				return c
			}
		}
		return ""
	}
	present := func(table string) bool {
		_, ok := columns[table]
		return ok
	}

	s := LogicalSchema{
		HasSemesters:       present(TableSemesters),
		HasEnrollments:     present(TableEnrollments),
		HasBookingPayments: present(TableBookingPayments),
		HasPayments:        present(TablePayments),
		HasStudents:        present(TableStudents),
		HasAssignments:     present(TableAssignments),
		RoomPriceColumn:    pick(TableRooms, priceColumnCandidates),
		RoomHasOccupancy:   has(TableRooms, "current_occupancy"),
	}

	gaps := map[string]struct{}{}
	gap := func(name string) { gaps[name] = struct{}{} }

	for _, table := range optionalTables {
		if !present(table) {
			gap(table)
		}
	}
	if s.RoomPriceColumn == "" {
		gap("rooms.price")
	}

	if s.HasPayments {
		s.PaymentResidentColumn = pick(TablePayments, residentColumnCandidates)
		s.PaymentMethodColumn = pick(TablePayments, methodColumnCandidates)
		s.PaymentHasMethod = s.PaymentMethodColumn != ""
		s.PaymentHasHostel = has(TablePayments, "hostel_id")
		s.PaymentHasSemester = has(TablePayments, "semester_id")
		s.PaymentHasSourceRef = has(TablePayments, "source_booking_payment_id")
		if s.PaymentResidentColumn == "" {
			s.HasPayments = false
			gap("payments.student_id")
		}
		if !s.PaymentHasHostel {
			gap("payments.hostel_id")
		}
		if !s.PaymentHasSemester {
			gap("payments.semester_id")
		}
		if !s.PaymentHasSourceRef {
			gap("payments.source_booking_payment_id")
		}
	}
	if s.HasAssignments {
		s.AssignmentResidentColumn = pick(TableAssignments, residentColumnCandidates)
		s.AssignmentHasSemester = has(TableAssignments, "semester_id")
		if s.AssignmentResidentColumn == "" {
			s.HasAssignments = false
			gap("student_room_assignments.student_id")
		}
		if !s.AssignmentHasSemester {
			gap("student_room_assignments.semester_id")
		}
	}
	if s.HasEnrollments {
		s.EnrollmentResidentColumn = pick(TableEnrollments, residentColumnCandidates)
		if s.EnrollmentResidentColumn == "" {
			s.HasEnrollments = false
			gap("student_semester_enrollments.student_id")
		}
	}

	for name := range gaps {
		s.Gaps = append(s.Gaps, name)
	}
	sort.Strings(s.Gaps)
	return s, nil
}

func (s LogicalSchema) clone() LogicalSchema {
	out := s
	if s.Gaps != nil {
		out.Gaps = append([]string(nil), s.Gaps...)
	}
	return out
}

// Static is a fixed Resolver, useful when the schema is known ahead of time.
type Static LogicalSchema

// Resolve implements Resolver.
func (s Static) Resolve(context.Context) (LogicalSchema, error) {
	return LogicalSchema(s).clone(), nil
}

// Current returns the newest schema generation with every optional capability present.
func Current() LogicalSchema {
	return LogicalSchema{
		PaymentResidentColumn:    "student_id",
		AssignmentResidentColumn: "student_id",
		EnrollmentResidentColumn: "student_id",
		PaymentMethodColumn:      "payment_method",
		RoomPriceColumn:          "price_per_semester",
		PaymentHasHostel:         true,
		PaymentHasSemester:       true,
		PaymentHasSourceRef:      true,
		PaymentHasMethod:         true,
		AssignmentHasSemester:    true,
		RoomHasOccupancy:         true,
		HasSemesters:             true,
		HasEnrollments:           true,
		HasBookingPayments:       true,
		HasPayments:              true,
		HasStudents:              true,
		HasAssignments:           true,
	}
}
