package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/BearHuddleston/employee-mcp-server/pkg/store"
)

// employeeFlags holds the writable fields for create and update.
type employeeFlags struct {
	name         string
	departmentID int64
	salary       float64
	hireDate     string
}

func (f *employeeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Employee name")
	cmd.Flags().Int64Var(&f.departmentID, "department-id", 0, "Department ID")
	cmd.Flags().Float64Var(&f.salary, "salary", 0, "Employee salary")
	cmd.Flags().StringVar(&f.hireDate, "hire-date", "", "Hire date (YYYY-MM-DD)")
}

func (f *employeeFlags) input() store.EmployeeInput {
	return store.EmployeeInput{
		Name:         f.name,
		DepartmentID: f.departmentID,
		Salary:       f.salary,
		HireDate:     f.hireDate,
	}
}

func newEmployeesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employees",
		Short: "Manage employee records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all employees with their department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(st *store.Store) error {
				employees, err := st.ListEmployees(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), employees, func(w io.Writer) {
					renderEmployees(w, employees)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a single employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store) error {
				e, err := st.GetEmployee(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), e, func(w io.Writer) {
					renderEmployees(w, []store.Employee{e})
				})
			})
		},
	})

	createFlags := &employeeFlags{}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(st *store.Store) error {
				id, err := st.CreateEmployee(cmd.Context(), createFlags.input())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Employee %q created with id %d\n", createFlags.name, id)
				return nil
			})
		},
	}
	createFlags.register(createCmd)
	cmd.AddCommand(createCmd)

	updateFlags := &employeeFlags{}
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace an employee's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store) error {
				if err := st.UpdateEmployee(cmd.Context(), id, updateFlags.input()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Employee %d updated\n", id)
				return nil
			})
		},
	}
	updateFlags.register(updateCmd)
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store) error {
				if err := st.DeleteEmployee(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Employee %d deleted\n", id)
				return nil
			})
		},
	})

	return cmd
}

func newDepartmentsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "departments",
		Short: "Inspect departments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all departments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(st *store.Store) error {
				departments, err := st.ListDepartments(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), departments, func(w io.Writer) {
					t := newTable(w)
					t.AppendHeader(table.Row{"ID", "Name"})
					for _, d := range departments {
						t.AppendRow(table.Row{d.ID, d.Name})
					}
					t.Render()
				})
			})
		},
	})

	return cmd
}

func (a *app) withStore(fn func(st *store.Store) error) error {
	st, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// render writes v as JSON when --output json is set, otherwise calls table.
func (a *app) render(w io.Writer, v any, table func(w io.Writer)) error {
	if a.cfg.OutputFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table(w)
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderEmployees(w io.Writer, employees []store.Employee) {
	if len(employees) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Department", "Salary", "Hire Date"})
	for _, e := range employees {
		department := "-"
		if e.Department != nil {
			department = *e.Department
		}
		salary := "-"
		if e.Salary != nil {
			salary = fmt.Sprintf("%.2f", *e.Salary)
		}
		t.AppendRow(table.Row{e.ID, e.Name, department, salary, e.HireDate})
	}
	t.Render()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}
