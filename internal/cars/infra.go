package cars

import (
	"context"
	"database/sql"
	"errors"
)

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

const carColumns = `id, customer_id, license_plate, make, model, year, vin, color, mileage, created_at, updated_at`

func (r *repo) Create(ctx context.Context, c *Car) error {
	c.LicensePlate = NormalizePlate(c.LicensePlate)
	return r.db.QueryRowContext(ctx, `
		INSERT INTO cars (customer_id, license_plate, make, model, year, vin, color, mileage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, c.CustomerID, c.LicensePlate, c.Make, c.Model, c.Year, c.VIN, c.Color, c.Mileage).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *repo) Get(ctx context.Context, id int64) (*Car, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT `+carColumns+` FROM cars WHERE id = $1
	`, id))
}

func (r *repo) GetByPlate(ctx context.Context, plate string) (*Car, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT `+carColumns+` FROM cars WHERE license_plate = $1
	`, NormalizePlate(plate)))
}

func (r *repo) List(ctx context.Context, customerID int64) ([]Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars ORDER BY created_at DESC`
	args := []any{}
	if customerID > 0 {
		query = `SELECT ` + carColumns + ` FROM cars WHERE customer_id = $1 ORDER BY created_at DESC`
		args = append(args, customerID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Car
	for rows.Next() {
		var c Car
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.LicensePlate, &c.Make, &c.Model,
			&c.Year, &c.VIN, &c.Color, &c.Mileage, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) Update(ctx context.Context, c *Car) error {
	c.LicensePlate = NormalizePlate(c.LicensePlate)
	res, err := r.db.ExecContext(ctx, `
		UPDATE cars
		SET license_plate = $1, make = $2, model = $3, year = $4,
		    vin = $5, color = $6, mileage = $7, updated_at = now()
		WHERE id = $8
	`, c.LicensePlate, c.Make, c.Model, c.Year, c.VIN, c.Color, c.Mileage, c.ID)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = $1`, id)
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

func (r *repo) Summary(ctx context.Context, id int64) (*Summary, error) {
	car, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM complaints WHERE car_id = $1
	`, id).Scan(&total); err != nil {
		return nil, err
	}

	return &Summary{
		CarID:           car.ID,
		DisplayName:     car.DisplayName(),
		LicensePlate:    car.LicensePlate,
		Mileage:         car.Mileage,
		TotalComplaints: total,
	}, nil
}

func (r *repo) scanOne(row *sql.Row) (*Car, error) {
	var c Car
	err := row.Scan(&c.ID, &c.CustomerID, &c.LicensePlate, &c.Make, &c.Model,
		&c.Year, &c.VIN, &c.Color, &c.Mileage, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
