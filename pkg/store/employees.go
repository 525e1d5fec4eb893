package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Department is a row of the departments table.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Employee is a row of the employees table joined with its department name.
// Department is nil when department_id does not reference an existing row.
// Salary and DepartmentID are nil when the column is NULL.
type Employee struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Department   *string  `json:"department"`
	Salary       *float64 `json:"salary"`
	HireDate     string   `json:"hire_date"`
	DepartmentID *int64   `json:"department_id"`
}

// EmployeeInput carries the writable employee fields.
type EmployeeInput struct {
	Name         string
	DepartmentID int64
	Salary       float64
	HireDate     string
}

// Validate checks that every field is set.
func (in EmployeeInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if in.DepartmentID == 0 {
		missing = append(missing, "department_id")
	}
	if strings.TrimSpace(in.HireDate) == "" {
		missing = append(missing, "hire_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if in.Salary < 0 {
		return fmt.Errorf("salary must not be negative: %v", in.Salary)
	}
	return nil
}

const employeeSelect = `
	SELECT e.id, e.name, d.name AS department, e.salary, e.hire_date, e.department_id
	FROM employees e
	LEFT JOIN departments d ON e.department_id = d.id`

// ListDepartments returns all departments ordered by id.
func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, "SELECT id, name FROM departments ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	departments := []Department{}
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// ListEmployees returns all employees with their department names, ordered by id.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, employeeSelect+" ORDER BY e.id")
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	employees := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetEmployee returns a single employee. ErrNotFound if the id is unknown.
func (s *Store) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return Employee{}, err
	}
	defer conn.Close()

	e, err := scanEmployee(conn.QueryRowContext(ctx, employeeSelect+" WHERE e.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Employee{}, fmt.Errorf("employee %d: %w", id, ErrNotFound)
	}
	return e, err
}

// CreateEmployee inserts a new employee and returns its id.
// The schema has no foreign key on department_id, so the department is
// checked here.
func (s *Store) CreateEmployee(ctx context.Context, in EmployeeInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireDepartment(ctx, tx, in.DepartmentID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO employees (name, department_id, salary, hire_date) VALUES (?, ?, ?, ?)",
			in.Name, in.DepartmentID, in.Salary, in.HireDate)
		if err != nil {
			return fmt.Errorf("insert employee: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// UpdateEmployee replaces all writable fields of an existing employee.
func (s *Store) UpdateEmployee(ctx context.Context, id int64, in EmployeeInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireDepartment(ctx, tx, in.DepartmentID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE employees SET name = ?, department_id = ?, salary = ?, hire_date = ? WHERE id = ?",
			in.Name, in.DepartmentID, in.Salary, in.HireDate, id)
		if err != nil {
			return fmt.Errorf("update employee: %w", err)
		}
		return expectOneRow(res, id)
	})
}

// DeleteEmployee removes an employee by id.
func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete employee: %w", err)
		}
		return expectOneRow(res, id)
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	conn, err := s.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireDepartment(ctx context.Context, tx *sql.Tx, id int64) error {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM departments WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("department %d: %w", id, ErrNotFound)
	}
	return err
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("employee %d: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var (
		e            Employee
		name         sql.NullString
		department   sql.NullString
		salary       sql.NullFloat64
		hireDate     any
		departmentID sql.NullInt64
	)
	if err := row.Scan(&e.ID, &name, &department, &salary, &hireDate, &departmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Employee{}, err
		}
		return Employee{}, fmt.Errorf("scan employee: %w", err)
	}
	e.Name = name.String
	if department.Valid {
		e.Department = &department.String
	}
	if salary.Valid {
		e.Salary = &salary.Float64
	}
	if departmentID.Valid {
		e.DepartmentID = &departmentID.Int64
	}
	e.HireDate = dateText(hireDate)
	return e, nil
}

// dateText renders hire_date as stored. The driver hands back time.Time for
// columns declared DATE or DATETIME.
func dateText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return FormatTime(x)
	default:
		return fmt.Sprint(x)
	}
}
