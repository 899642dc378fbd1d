// Package repo contains all database access logic for the shift simulator.
// The trip log is read-only from here: no business logic, only SQL and type
// mapping.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/shiftsim/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripLog defines the read operations the simulator needs from the trip log.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a fake.
type TripLog interface {
	// ListBySubject returns the subject's trips starting in [from, to),
	// ordered by start time ascending.
	ListBySubject(ctx context.Context, subjectID string, from, to time.Time) ([]domain.Trip, error)

	// ListInWindow returns the city's trips starting in [from, to] whose
	// pickup zone is one of zoneIDs, ordered by start time ascending.
	// An empty zoneIDs matches nothing.
	ListInWindow(ctx context.Context, cityID string, from, to time.Time, zoneIDs []string) ([]domain.Trip, error)
}

// pgTripLog is the Postgres implementation of TripLog.
type pgTripLog struct {
	db db
}

// NewTripLog constructs a TripLog backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripLog(db db) TripLog {
	return &pgTripLog{db: db}
}

const tripColumns = `
		job_id, driver_id, city_id, pickup_hex_id9, drop_hex_id9,
		start_time, end_time, duration_mins::float8, net_earnings`

// ListBySubject returns one subject's trips for a time range.
func (r *pgTripLog) ListBySubject(ctx context.Context, subjectID string, from, to time.Time) ([]domain.Trip, error) {
	const q = `
		SELECT` + tripColumns + `
		FROM jobs
		WHERE driver_id   = @driver_id
		  AND start_time >= @from
		  AND start_time <  @to
		ORDER BY start_time ASC, job_id ASC`

	args := pgx.NamedArgs{
		"driver_id": subjectID,
		"from":      from,
		"to":        to,
	}

	trips, err := r.list(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.TripLog.ListBySubject: %w", err)
	}
	return trips, nil
}

// ListInWindow returns the candidate offers for one simulator step.
func (r *pgTripLog) ListInWindow(ctx context.Context, cityID string, from, to time.Time, zoneIDs []string) ([]domain.Trip, error) {
	if len(zoneIDs) == 0 {
		return nil, nil
	}

	const q = `
		SELECT` + tripColumns + `
		FROM jobs
		WHERE city_id     = @city_id
		  AND start_time >= @from
		  AND start_time <= @to
		  AND pickup_hex_id9 = ANY(@zones)
		ORDER BY start_time ASC, job_id ASC`

	args := pgx.NamedArgs{
		"city_id": cityID,
		"from":    from,
		"to":      to,
		"zones":   zoneIDs,
	}

	trips, err := r.list(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.TripLog.ListInWindow: %w", err)
	}
	return trips, nil
}

func (r *pgTripLog) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return trips, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single jobs row into a domain.Trip, converting the
// nullable end_time, duration_mins and net_earnings columns to nil pointers.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t        domain.Trip
		end      pgtype.Timestamptz
		duration pgtype.Float8
		fare     pgtype.Float8
	)

	err := s.Scan(&t.ID, &t.SubjectID, &t.CityID, &t.PickupZone, &t.DropoffZone,
		&t.StartTS, &end, &duration, &fare)
	if err != nil {
		return domain.Trip{}, err
	}

	if end.Valid {
		e := end.Time
		t.EndTS = &e
	}
	if duration.Valid {
		d := duration.Float64
		t.DurationMins = &d
	}
	if fare.Valid {
		f := fare.Float64
		t.Fare = &f
	}
	return t, nil
}
