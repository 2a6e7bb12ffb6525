package complaints

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"garagist/internal/cars"
)

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

const complaintColumns = `id, car_id, complaint_text, cleaned_text, predicted_category,
	confidence, crash, fire, status, resolution_notes, created_at, updated_at`

func (r *repo) Create(ctx context.Context, c *Complaint) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO complaints (car_id, complaint_text, cleaned_text, predicted_category,
			confidence, crash, fire, status, resolution_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, c.CarID, c.Text, c.CleanedText, string(c.Category),
		c.Confidence, c.Crash, c.Fire, string(c.Status), c.ResolutionNotes).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *repo) Get(ctx context.Context, id int64) (*Complaint, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+complaintColumns+` FROM complaints WHERE id = $1
	`, id)

	var c Complaint
	err := scanComplaint(row, &c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, f Filter) ([]Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints c`
	var (
		where []string
		args  []any
	)
	if f.CustomerID > 0 {
		query = `SELECT ` + qualifiedComplaintColumns + ` FROM complaints c
			JOIN cars ON cars.id = c.car_id`
		where = append(where, "cars.customer_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.CustomerID)
	}
	if f.CarID > 0 {
		where = append(where, "c.car_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.CarID)
	}
	if f.Category != "" {
		where = append(where, "c.predicted_category = $"+strconv.Itoa(len(args)+1))
		args = append(args, string(f.Category))
	}
	if f.Critical {
		where = append(where, "(c.crash OR c.fire)")
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY c.created_at DESC, c.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComplaints(rows)
}

func (r *repo) ListByCar(ctx context.Context, carID, excludeID int64, limit int) ([]Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE car_id = $1`
	args := []any{carID}
	if excludeID > 0 {
		args = append(args, excludeID)
		query += ` AND id <> $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComplaints(rows)
}

func (r *repo) Update(ctx context.Context, c *Complaint) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE complaints
		SET status = $1, resolution_notes = $2, crash = $3, fire = $4, updated_at = now()
		WHERE id = $5
	`, string(c.Status), c.ResolutionNotes, c.Crash, c.Fire, c.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM complaints WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) Statistics(ctx context.Context) (*Statistics, error) {
	var s Statistics
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE crash OR fire),
		       count(*) FILTER (WHERE crash),
		       count(*) FILTER (WHERE fire),
		       count(*) FILTER (WHERE created_at >= now() - interval '7 days')
		FROM complaints
	`).Scan(&s.Total, &s.Critical, &s.Crash, &s.Fire, &s.RecentWeek)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT predicted_category, count(*)
		FROM complaints
		GROUP BY predicted_category
		ORDER BY count(*) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cc CategoryCount
		var cat string
		if err := rows.Scan(&cat, &cc.Count); err != nil {
			return nil, err
		}
		cc.Category = Category(cat)
		s.ByCategory = append(s.ByCategory, cc)
	}
	return &s, rows.Err()
}

// QuickSubmitTx — customer+car+complaint creation is one store
// transaction; the pipeline takes no locks of its own.
func (r *repo) QuickSubmitTx(ctx context.Context, q QuickSubmit, classified *Complaint) (*Complaint, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin quick submit: %w", err)
	}
	defer tx.Rollback()

	customerID, err := findOrCreateCustomer(ctx, tx, q)
	if err != nil {
		return nil, err
	}

	carID, err := findOrCreateCar(ctx, tx, customerID, q)
	if err != nil {
		return nil, err
	}

	c := *classified
	c.CarID = carID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO complaints (car_id, complaint_text, cleaned_text, predicted_category,
			confidence, crash, fire, status, resolution_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, c.CarID, c.Text, c.CleanedText, string(c.Category),
		c.Confidence, c.Crash, c.Fire, string(c.Status), c.ResolutionNotes).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert complaint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit quick submit: %w", err)
	}
	return &c, nil
}

// findOrCreateCustomer matches by email first, then phone.
func findOrCreateCustomer(ctx context.Context, tx *sql.Tx, q QuickSubmit) (int64, error) {
	var id int64
	if q.CustomerEmail != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM customers WHERE email = $1`, q.CustomerEmail).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
	}
	if q.CustomerPhone != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM customers WHERE phone = $1`, q.CustomerPhone).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO customers (name, email, phone)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		RETURNING id
	`, q.CustomerName, q.CustomerEmail, q.CustomerPhone).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return id, nil
}

func findOrCreateCar(ctx context.Context, tx *sql.Tx, customerID int64, q QuickSubmit) (int64, error) {
	plate := cars.NormalizePlate(q.LicensePlate)

	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM cars WHERE license_plate = $1`, plate).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO cars (customer_id, license_plate, make, model, year, mileage)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, customerID, plate, q.CarMake, q.CarModel, q.CarYear, q.CarMileage).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert car: %w", err)
	}
	return id, nil
}

const qualifiedComplaintColumns = `c.id, c.car_id, c.complaint_text, c.cleaned_text,
	c.predicted_category, c.confidence, c.crash, c.fire, c.status, c.resolution_notes,
	c.created_at, c.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanComplaint(s scanner, c *Complaint) error {
	var cat, status string
	if err := s.Scan(&c.ID, &c.CarID, &c.Text, &c.CleanedText, &cat,
		&c.Confidence, &c.Crash, &c.Fire, &status, &c.ResolutionNotes,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	c.Category = Category(cat)
	c.Status = Status(status)
	return nil
}

func collectComplaints(rows *sql.Rows) ([]Complaint, error) {
	var out []Complaint
	for rows.Next() {
		var c Complaint
		if err := scanComplaint(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
