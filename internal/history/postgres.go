package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"driverreview/internal/logger"
	"driverreview/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	db  *sql.DB
	log logger.ILogger
}

func Connect(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewPostgres connects, applies pending migrations and returns the store.
func NewPostgres(connStr string, log logger.ILogger) (*Postgres, error) {
	db, err := Connect(connStr)
	if err != nil {
		log.Error("failed to connect Postgres", logger.Error(err))
		return nil, err
	}

	if err = Migrate(db, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("Postgres connected")
	return &Postgres{db: db, log: log}, nil
}

func Migrate(db *sql.DB, log logger.ILogger) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration init: %w", err)
	}

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return nil
		}
		log.Error("migration up error", logger.Error(err))
		return err
	}
	return nil
}

func (p *Postgres) Record(ctx context.Context, d models.Decision) error {
	reasons := d.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO decisions (driver_id, telegram_id, full_name, approved, reasons, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.DriverID, d.TelegramID, d.FullName, d.Approved, pq.Array(reasons), d.DecidedAt)
	return err
}

// Recent returns up to limit decisions, newest first. A non-positive limit
// returns all of them.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]models.Decision, error) {
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, driver_id, telegram_id, full_name, approved, reasons, decided_at
		FROM decisions
		ORDER BY decided_at DESC, id DESC
		LIMIT $1`, lim)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			p.log.Error("Error closing rows", logger.Error(closeErr))
		}
	}()

	var decisions []models.Decision
	for rows.Next() {
		var d models.Decision
		var reasons pq.StringArray
		if scanErr := rows.Scan(&d.ID, &d.DriverID, &d.TelegramID, &d.FullName,
			&d.Approved, &reasons, &d.DecidedAt); scanErr != nil {
			return nil, scanErr
		}
		d.Reasons = []string(reasons)
		decisions = append(decisions, d)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return decisions, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
