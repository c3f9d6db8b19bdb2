// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/credit-approval-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrLoanNotFound возвращается, если кредит не найден.
	ErrLoanNotFound = errors.New("loan not found")
	// ErrPhoneExists возвращается при попытке зарегистрировать уже занятый номер телефона.
	ErrPhoneExists = errors.New("customer with this phone number already exists")
)

// OriginateFunc получает заблокированного клиента и его кредиты и возвращает
// новый кредит вместе с обновлённым клиентом. Если кредит равен nil, ничего не сохраняется.
type OriginateFunc func(customer model.Customer, loans []model.Loan) (*model.Loan, *model.Customer, error)

// querier позволяет выполнять одни и те же запросы через пул и через транзакцию.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	// NUMERIC читается и пишется как decimal.Decimal на всех соединениях пула.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

var retryDelays = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(retryDelays) {
			break
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// isRetryable сообщает, имеет ли смысл повторить операцию: конфликт сериализации,
// взаимная блокировка или обрыв соединения.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateCustomer сохраняет нового клиента и возвращает его идентификатор.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, c model.Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (first_name, last_name, age, phone_number, monthly_income, approved_limit, current_debt)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		c.FirstName, c.LastName, c.Age, c.PhoneNumber, c.MonthlyIncome, c.ApprovedLimit, c.CurrentDebt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrPhoneExists, c.PhoneNumber)
		}
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return id, nil
}

const customerColumns = `id, first_name, last_name, age, phone_number, monthly_income, approved_limit, current_debt`

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Age, &c.PhoneNumber,
		&c.MonthlyIncome, &c.ApprovedLimit, &c.CurrentDebt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}

// GetCustomer возвращает клиента по идентификатору.
func (r *PostgresRepository) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`,
		id,
	))
}

const loanColumns = `id, customer_id, amount, tenure, interest_rate, monthly_installment, emis_paid_on_time, start_date, end_date`

type scanner interface {
	Scan(dest ...any) error
}

func scanLoan(row scanner) (model.Loan, error) {
	var l model.Loan
	err := row.Scan(&l.ID, &l.CustomerID, &l.Amount, &l.Tenure, &l.InterestRate,
		&l.MonthlyInstallment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate)
	return l, err
}

// GetLoan возвращает кредит по идентификатору.
func (r *PostgresRepository) GetLoan(ctx context.Context, id int64) (*model.Loan, error) {
	l, err := scanLoan(r.pool.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return &l, nil
}

// GetLoansByCustomer возвращает все кредиты клиента в порядке выдачи.
func (r *PostgresRepository) GetLoansByCustomer(ctx context.Context, customerID int64) ([]model.Loan, error) {
	return loansByCustomer(ctx, r.pool, customerID)
}

func loansByCustomer(ctx context.Context, q querier, customerID int64) ([]model.Loan, error) {
	rows, err := q.Query(ctx,
		`SELECT `+loanColumns+`
		 FROM loans
		 WHERE customer_id = $1
		 ORDER BY start_date, id`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return loans, nil
}

// OriginateLoan атомарно выдаёт кредит. Строка клиента блокируется на время
// транзакции, поэтому параллельные заявки одного клиента проверяют лимит по очереди.
func (r *PostgresRepository) OriginateLoan(ctx context.Context, customerID int64, fn OriginateFunc) (*model.Loan, error) {
	var created *model.Loan

	err := r.withRetry(ctx, func() error {
		created = nil

		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		customer, err := scanCustomer(tx.QueryRow(ctx,
			`SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`,
			customerID,
		))
		if err != nil {
			return err
		}

		loans, err := loansByCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}

		loan, updated, err := fn(*customer, loans)
		if err != nil {
			return err
		}
		if loan == nil || updated == nil {
			return nil
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO loans (customer_id, amount, tenure, interest_rate, monthly_installment, emis_paid_on_time, start_date, end_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			customerID, loan.Amount, loan.Tenure, loan.InterestRate, loan.MonthlyInstallment,
			loan.EMIsPaidOnTime, loan.StartDate, loan.EndDate,
		).Scan(&loan.ID)
		if err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE customers SET current_debt = $2 WHERE id = $1`,
			customerID, updated.CurrentDebt,
		)
		if err != nil {
			return fmt.Errorf("update customer debt: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		loan.CustomerID = customerID
		created = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpsertCustomer создаёт или обновляет клиента с заданным идентификатором.
func (r *PostgresRepository) UpsertCustomer(ctx context.Context, c model.Customer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO customers (id, first_name, last_name, age, phone_number, monthly_income, approved_limit, current_debt)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     age = EXCLUDED.age,
		     phone_number = EXCLUDED.phone_number,
		     monthly_income = EXCLUDED.monthly_income,
		     approved_limit = EXCLUDED.approved_limit,
		     current_debt = EXCLUDED.current_debt`,
		c.ID, c.FirstName, c.LastName, c.Age, c.PhoneNumber, c.MonthlyIncome, c.ApprovedLimit, c.CurrentDebt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrPhoneExists, c.PhoneNumber)
		}
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

// UpsertLoan создаёт или обновляет кредит с заданным идентификатором.
func (r *PostgresRepository) UpsertLoan(ctx context.Context, l model.Loan) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO loans (id, customer_id, amount, tenure, interest_rate, monthly_installment, emis_paid_on_time, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     customer_id = EXCLUDED.customer_id,
		     amount = EXCLUDED.amount,
		     tenure = EXCLUDED.tenure,
		     interest_rate = EXCLUDED.interest_rate,
		     monthly_installment = EXCLUDED.monthly_installment,
		     emis_paid_on_time = EXCLUDED.emis_paid_on_time,
		     start_date = EXCLUDED.start_date,
		     end_date = EXCLUDED.end_date`,
		l.ID, l.CustomerID, l.Amount, l.Tenure, l.InterestRate, l.MonthlyInstallment,
		l.EMIsPaidOnTime, l.StartDate, l.EndDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: %d", ErrCustomerNotFound, l.CustomerID)
		}
		return fmt.Errorf("upsert loan: %w", err)
	}
	return nil
}

// SyncSequences выравнивает последовательности идентификаторов после загрузки
// записей с явными id, чтобы новые записи не конфликтовали с импортированными.
func (r *PostgresRepository) SyncSequences(ctx context.Context) error {
	for _, table := range []string{"customers", "loans"} {
		_, err := r.pool.Exec(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`,
			table,
		))
		if err != nil {
			return fmt.Errorf("sync %s sequence: %w", table, err)
		}
	}
	return nil
}
