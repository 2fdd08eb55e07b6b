package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"sortec/entity"
	"sortec/internal/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

const (
	tableRegistration = "registration"
	tableSequence     = "sequence"
)

type MySql struct {
	db         *sql.DB
	prefix     string
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func NewSQLClient(conf *config.Config) (*MySql, error) {
	if !conf.MySql.Enabled {
		return nil, fmt.Errorf("mysql client is disabled in configuration")
	}
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		conf.MySql.UserName, conf.MySql.Password, conf.MySql.HostName, conf.MySql.Port, conf.MySql.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:         db,
		prefix:     conf.MySql.Prefix,
		statements: make(map[string]*sql.Stmt),
	}

	if err = sdb.createTables(); err != nil {
		return nil, err
	}
	if err = sdb.addColumnIfNotExists(tableRegistration, "decided_at", "DATETIME NULL DEFAULT NULL"); err != nil {
		return nil, err
	}

	return sdb, nil
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

func (s *MySql) createTables() error {
	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s%s (
			id CHAR(36) NOT NULL PRIMARY KEY,
			document_number VARCHAR(8) NOT NULL,
			given_names VARCHAR(64) NOT NULL,
			family_names VARCHAR(64) NOT NULL,
			address VARCHAR(128) NOT NULL,
			country VARCHAR(64) NOT NULL,
			region VARCHAR(64) NOT NULL,
			district VARCHAR(64) NOT NULL,
			email VARCHAR(128) NOT NULL,
			phone VARCHAR(9) NOT NULL,
			voucher_url VARCHAR(512) NOT NULL,
			payment_reference VARCHAR(64) NOT NULL,
			contest_code VARCHAR(32) NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			UNIQUE KEY uq_contest_code (contest_code)
		) DEFAULT CHARSET=utf8mb4`, s.prefix, tableRegistration),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s%s (
			name VARCHAR(32) NOT NULL PRIMARY KEY,
			value BIGINT NOT NULL
		)`, s.prefix, tableSequence),
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (s *MySql) addColumnIfNotExists(tableName, columnName, columnType string) error {
	query := fmt.Sprintf(`SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = '%s%s' AND COLUMN_NAME = '%s'`,
		s.prefix, tableName, columnName)
	var column string
	err := s.db.QueryRow(query).Scan(&column)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			alterQuery := fmt.Sprintf(`ALTER TABLE %s%s ADD COLUMN %s %s`, s.prefix, tableName, columnName, columnType)
			_, err = s.db.Exec(alterQuery)
			if err != nil {
				return fmt.Errorf("add column %s to table %s: %w", columnName, tableName, err)
			}
		} else {
			return fmt.Errorf("checking column %s existence in %s: %w", columnName, tableName, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*entity.Registration, error) {
	var reg entity.Registration
	var code sql.NullString
	var status string
	var decided sql.NullTime
	err := row.Scan(
		&reg.Id,
		&reg.DocumentNumber,
		&reg.GivenNames,
		&reg.FamilyNames,
		&reg.Address,
		&reg.Country,
		&reg.Region,
		&reg.District,
		&reg.Email,
		&reg.Phone,
		&reg.VoucherUrl,
		&reg.PaymentReference,
		&code,
		&status,
		&reg.CreatedAt,
		&decided,
	)
	if err != nil {
		return nil, err
	}
	if code.Valid {
		reg.ContestCode = &code.String
	}
	if reg.Status, err = entity.ParseStatus(status); err != nil {
		return nil, err
	}
	if decided.Valid {
		t := decided.Time
		reg.DecidedAt = &t
	}
	return &reg, nil
}

func (s *MySql) CreateRegistration(ctx context.Context, reg *entity.Registration) error {
	stmt, err := s.stmtInsertRegistration()
	if err != nil {
		return err
	}
	var code sql.NullString
	if reg.ContestCode != nil {
		code = sql.NullString{String: *reg.ContestCode, Valid: true}
	}
	_, err = stmt.ExecContext(ctx,
		reg.Id,
		reg.DocumentNumber,
		reg.GivenNames,
		reg.FamilyNames,
		reg.Address,
		reg.Country,
		reg.Region,
		reg.District,
		reg.Email,
		reg.Phone,
		reg.VoucherUrl,
		reg.PaymentReference,
		code,
		string(reg.Status),
		reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *MySql) GetRegistration(ctx context.Context, id string) (*entity.Registration, error) {
	stmt, err := s.stmtSelectRegistration()
	if err != nil {
		return nil, err
	}
	return s.findOne(stmt.QueryRowContext(ctx, id))
}

func (s *MySql) GetRegistrationByCode(ctx context.Context, code string) (*entity.Registration, error) {
	stmt, err := s.stmtSelectRegistrationByCode()
	if err != nil {
		return nil, err
	}
	return s.findOne(stmt.QueryRowContext(ctx, code))
}

func (s *MySql) findOne(row *sql.Row) (*entity.Registration, error) {
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select registration: %w", err)
	}
	return reg, nil
}

func (s *MySql) Registrations(ctx context.Context) iter.Seq2[*entity.Registration, error] {
	return func(yield func(*entity.Registration, error) bool) {
		stmt, err := s.stmtSelectRegistrations()
		if err != nil {
			yield(nil, err)
			return
		}
		rows, err := stmt.QueryContext(ctx)
		if err != nil {
			yield(nil, fmt.Errorf("query: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			reg, err := scanRegistration(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(reg, nil) {
				return
			}
		}
		if err = rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (s *MySql) UpdateParticipant(ctx context.Context, id string, p *entity.Participant) (bool, error) {
	stmt, err := s.stmtUpdateParticipant()
	if err != nil {
		return false, err
	}
	_, err = stmt.ExecContext(ctx,
		p.DocumentNumber,
		p.GivenNames,
		p.FamilyNames,
		p.Address,
		p.Country,
		p.Region,
		p.District,
		p.Email,
		p.Phone,
		p.VoucherUrl,
		p.PaymentReference,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("update registration: %w", err)
	}
	// unchanged rows report zero affected rows, so existence is checked separately
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return false, err
	}
	return reg != nil, nil
}

// SetStatus updates the row only while it still holds the `from` status.
func (s *MySql) SetStatus(ctx context.Context, id string, from, to entity.Status, at time.Time) (bool, error) {
	stmt, err := s.stmtUpdateStatus()
	if err != nil {
		return false, err
	}
	res, err := stmt.ExecContext(ctx, string(to), at, id, string(from))
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *MySql) DeleteRegistration(ctx context.Context, id string) (bool, error) {
	stmt, err := s.stmtDeleteRegistration()
	if err != nil {
		return false, err
	}
	res, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *MySql) CountRegistrations(ctx context.Context) (int64, error) {
	stmt, err := s.stmtCountRegistrations()
	if err != nil {
		return 0, err
	}
	var count int64
	if err = stmt.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// Next increments the sequence row; LAST_INSERT_ID(expr) makes the new value
// come back in the same statement result, so no second read is needed.
func (s *MySql) Next(ctx context.Context) (int64, error) {
	stmt, err := s.stmtNextSequence()
	if err != nil {
		return 0, err
	}
	res, err := stmt.ExecContext(ctx, tableRegistration)
	if err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	value, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	return value, nil
}

func (s *MySql) Seed(ctx context.Context, floor int64) error {
	stmt, err := s.stmtSeedSequence()
	if err != nil {
		return err
	}
	if _, err = stmt.ExecContext(ctx, tableRegistration, floor); err != nil {
		return fmt.Errorf("seed sequence: %w", err)
	}
	return nil
}
