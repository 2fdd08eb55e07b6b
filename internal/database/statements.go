package database

import (
	"database/sql"
	"fmt"
)

const registrationColumns = `id, document_number, given_names, family_names, address, country, region, district,
	email, phone, voucher_url, payment_reference, contest_code, status, created_at, decided_at`

func (s *MySql) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

func (s *MySql) stmtInsertRegistration() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s%s (
                   id, document_number, given_names, family_names, address, country, region, district,
                   email, phone, voucher_url, payment_reference, contest_code, status, created_at)
                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.prefix, tableRegistration,
	)
	return s.prepareStmt("insertRegistration", query)
}

func (s *MySql) stmtSelectRegistration() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s%s WHERE id = ?`,
		registrationColumns, s.prefix, tableRegistration,
	)
	return s.prepareStmt("selectRegistration", query)
}

func (s *MySql) stmtSelectRegistrationByCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s%s WHERE contest_code = ?`,
		registrationColumns, s.prefix, tableRegistration,
	)
	return s.prepareStmt("selectRegistrationByCode", query)
}

func (s *MySql) stmtSelectRegistrations() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s%s ORDER BY created_at`,
		registrationColumns, s.prefix, tableRegistration,
	)
	return s.prepareStmt("selectRegistrations", query)
}

func (s *MySql) stmtUpdateParticipant() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %s%s SET
                   document_number = ?,
                   given_names = ?,
                   family_names = ?,
                   address = ?,
                   country = ?,
                   region = ?,
                   district = ?,
                   email = ?,
                   phone = ?,
                   voucher_url = ?,
                   payment_reference = ?
                   WHERE id = ?`,
		s.prefix, tableRegistration,
	)
	return s.prepareStmt("updateParticipant", query)
}

func (s *MySql) stmtUpdateStatus() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %s%s SET
                   status = ?,
                   decided_at = ?
                   WHERE id = ? AND status = ?`,
		s.prefix, tableRegistration,
	)
	return s.prepareStmt("updateStatus", query)
}

func (s *MySql) stmtDeleteRegistration() (*sql.Stmt, error) {
	query := fmt.Sprintf(`DELETE FROM %s%s WHERE id = ?`, s.prefix, tableRegistration)
	return s.prepareStmt("deleteRegistration", query)
}

func (s *MySql) stmtCountRegistrations() (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, s.prefix, tableRegistration)
	return s.prepareStmt("countRegistrations", query)
}

func (s *MySql) stmtNextSequence() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s%s (name, value) VALUES (?, LAST_INSERT_ID(1))
                   ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`,
		s.prefix, tableSequence,
	)
	return s.prepareStmt("nextSequence", query)
}

func (s *MySql) stmtSeedSequence() (*sql.Stmt, error) {
	query := fmt.Sprintf(`INSERT IGNORE INTO %s%s (name, value) VALUES (?, ?)`, s.prefix, tableSequence)
	return s.prepareStmt("seedSequence", query)
}
