package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"github.com/classroom-devices/loanledger/internal/adapters"
	"github.com/classroom-devices/loanledger/ledger"
)

const (
	tableEntries                   = "loan_entries"
	tableReservations              = "reservations"
	tableStudents                  = "students"
	tableUnits                     = "units"
	logMsgBuildSelectQueryFailed   = "failed to build select query"
	logMsgDBQueryFailed            = "database query execution failed"
	logMsgCloseRowsFailed          = "failed to close database rows"
	logMsgScanRowFailed            = "failed to scan database row"
	logMsgBuildStorableEntryFailed = "failed to build storable entry from database row"
	logMsgBuildInsertQueryFailed   = "failed to build insert query"
	logMsgDBExecFailed             = "database execution failed during entry append"
	logMsgQueryCompleted           = "query completed"
	logMsgEntryAppended            = "entry appended"
	logMsgConcurrencyConflict      = "concurrency conflict detected"
	logMsgSQLExecuted              = "executed sql for: "
	logMsgOperation                = "ledger operation: "
	logAttrError                   = "error"
	logAttrQuery                   = "query"
	logAttrEntryType               = "entry_type"
	logAttrEntryCount              = "entry_count"
	logAttrDurationMS              = "duration_ms"
	logAttrExpectedSequence        = "expected_sequence"
	logAttrConflictStep            = "conflict_step"
	logActionQuery                 = "query"
	logActionLock                  = "lock"
	logActionAppend                = "append"
	logActionTransition            = "unit transition"
	colEntryType                   = "entry_type"
	colOccurredAt                  = "occurred_at"
	colPayload                     = "payload"
	colMetadata                    = "metadata"
	colSequenceNumber              = "sequence_number"
	colID                          = "id"
	colAssetTag                    = "asset_tag"
	colStatus                      = "status"
	colQuantity                    = "quantity"
	reservationStatusActive        = "ACTIVE"
	cteContext                     = "context"
	dialectPostgres                = "postgres"
	aliasMaxSeq                    = "max_seq"
	castTimestamp                  = "?::timestamptz"
	castJsonb                      = "?::jsonb"
	payloadContains                = colPayload + " @> ?::jsonb"
	pgCodeSerializationFailure     = "40001"
	pgCodeDeadlockDetected         = "40P01"
	conflictStepLock               = "lock"
	conflictStepInsert             = "insert"
	conflictStepTransition         = "unit_transition"
)

type sqlQueryString = string

// EntryStore is the PostgreSQL implementation of the loan ledger.
type EntryStore struct {
	db               adapters.DBAdapter
	logger           ledger.Logger
	contextualLogger ledger.ContextualLogger
	metricsCollector ledger.MetricsCollector
	tracingCollector ledger.TracingCollector
}

// NewEntryStoreFromPGXPool creates an EntryStore on a pgx pool.
func NewEntryStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*EntryStore, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newEntryStore(adapters.NewPGXAdapter(db), options...)
}

// NewEntryStoreFromPGXPoolAndReplica creates an EntryStore that sends eventually
// consistent queries to the replica pool.
func NewEntryStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*EntryStore, error) {
	if db == nil || replica == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newEntryStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewEntryStoreFromSQLDB creates an EntryStore on a sql.DB.
func NewEntryStoreFromSQLDB(db *sql.DB, options ...Option) (*EntryStore, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newEntryStore(adapters.NewSQLAdapter(db), options...)
}

// NewEntryStoreFromSQLX creates an EntryStore on a sqlx.DB.
func NewEntryStoreFromSQLX(db *sqlx.DB, options ...Option) (*EntryStore, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newEntryStore(adapters.NewSQLXAdapter(db), options...)
}

func newEntryStore(db adapters.DBAdapter, options ...Option) (*EntryStore, error) {
	es := &EntryStore{db: db}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// Query returns the entries matching filter in sequence order, together with the highest
// sequence number among them (0 when there are none).
func (es *EntryStore) Query(ctx context.Context, filter ledger.Filter) (
	ledger.StorableEntries,
	ledger.MaxSequenceNumberUint,
	error,
) {

	tracing, ctx := es.startQueryTracing(ctx)
	metrics := es.startQueryMetrics(ctx)
	start := time.Now()

	sqlQuery, err := es.buildSelectQuery(filter)
	if err != nil {
		es.logErrorContext(ctx, logMsgBuildSelectQueryFailed, err)
		tracing.finishError(errorTypeBuildQuery, time.Since(start))
		metrics.recordError(errorTypeBuildQuery, time.Since(start))

		return nil, 0, err
	}

	entries, maxSequenceNumber, err := es.runQuery(ctx, es.db, sqlQuery)
	duration := time.Since(start)

	if err != nil {
		tracing.finishError(errorTypeQuery, duration)
		metrics.recordError(errorTypeQuery, duration)

		return nil, 0, err
	}

	es.logOperationContext(ctx, logMsgQueryCompleted,
		logAttrEntryCount, len(entries),
		logAttrDurationMS, toMilliseconds(duration))
	tracing.finishSuccess(len(entries), maxSequenceNumber, duration)
	metrics.recordSuccess(len(entries), duration)

	return entries, maxSequenceNumber, nil
}

// QueryWithin is Query on a caller-owned transaction, for reads that must see the same
// snapshot as the caller's own writes.
func (es *EntryStore) QueryWithin(ctx context.Context, q adapters.Queryer, filter ledger.Filter) (
	ledger.StorableEntries,
	ledger.MaxSequenceNumberUint,
	error,
) {

	sqlQuery, err := es.buildSelectQuery(filter)
	if err != nil {
		return nil, 0, err
	}

	return es.runQuery(ctx, q, sqlQuery)
}

func (es *EntryStore) runQuery(ctx context.Context, db adapters.Queryer, sqlQuery string) (
	ledger.StorableEntries,
	ledger.MaxSequenceNumberUint,
	error,
) {

	start := time.Now()
	rows, err := db.Query(ctx, sqlQuery)
	es.logQueryWithDuration(ctx, sqlQuery, logActionQuery, time.Since(start))

	if err != nil {
		es.logErrorContext(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)

		return nil, 0, errors.Join(ledger.ErrQueryingEntriesFailed, err)
	}
	defer es.closeRows(ctx, rows)

	return es.scanEntries(ctx, rows)
}

func (es *EntryStore) scanEntries(ctx context.Context, rows adapters.DBRows) (
	ledger.StorableEntries,
	ledger.MaxSequenceNumberUint,
	error,
) {

	var (
		entryType      string
		occurredAt     time.Time
		payload        []byte
		metadata       []byte
		sequenceNumber uint
	)

	entries := make(ledger.StorableEntries, 0)
	maxSequenceNumber := ledger.MaxSequenceNumberUint(0)

	for rows.Next() {
		if err := rows.Scan(&entryType, &occurredAt, &payload, &metadata, &sequenceNumber); err != nil {
			es.logErrorContext(ctx, logMsgScanRowFailed, err)

			return nil, 0, errors.Join(ledger.ErrScanningDBRowFailed, err)
		}

		entry, err := ledger.BuildStorableEntry(entryType, occurredAt, payload, metadata)
		if err != nil {
			es.logErrorContext(ctx, logMsgBuildStorableEntryFailed, err, logAttrEntryType, entryType)

			return nil, 0, errors.Join(ledger.ErrBuildingStorableEntryFailed, err)
		}

		entries = append(entries, entry.WithSequenceNumber(sequenceNumber))
		maxSequenceNumber = sequenceNumber
	}

	if err := rows.Err(); err != nil {
		return nil, 0, errors.Join(ledger.ErrQueryingEntriesFailed, err)
	}

	return entries, maxSequenceNumber, nil
}

func (es *EntryStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		es.logWarnContext(ctx, logMsgCloseRowsFailed, err)
	}
}

// Append writes entry if nothing matching filter was appended after expectedMaxSequenceNumber,
// locking and transitioning the catalog rows named in guard within the same transaction.
//
// The filter must be the one used for the Query the decision was based on.
func (es *EntryStore) Append(
	ctx context.Context,
	filter ledger.Filter,
	expectedMaxSequenceNumber ledger.MaxSequenceNumberUint,
	guard ledger.AppendGuard,
	entry ledger.StorableEntry,
) error {

	if err := guard.Validate(); err != nil {
		return err
	}

	tracing, ctx := es.startAppendTracing(ctx, entry, expectedMaxSequenceNumber)
	metrics := es.startAppendMetrics(ctx)
	start := time.Now()

	insertQuery, err := es.buildInsertQuery(entry, filter, expectedMaxSequenceNumber)
	if err != nil {
		es.logErrorContext(ctx, logMsgBuildInsertQueryFailed, err, logAttrEntryType, entry.EntryType)
		tracing.finishError(errorTypeBuildQuery, time.Since(start))
		metrics.recordError(errorTypeBuildQuery, time.Since(start))

		return err
	}

	err = adapters.WithinTx(ctx, es.db, func(tx adapters.Queryer) error {
		if lockErr := es.lockGuardRows(ctx, tx, guard); lockErr != nil {
			return lockErr
		}

		if insertErr := es.execExpectingRows(ctx, tx, insertQuery, logActionAppend, conflictStepInsert); insertErr != nil {
			return insertErr
		}

		return es.transitionUnit(ctx, tx, guard.Unit)
	})

	return es.finishAppend(ctx, tracing, metrics, entry.EntryType, expectedMaxSequenceNumber, time.Since(start), err)
}

// DecideAndAppend locks the guard rows, reads the entries matching filter inside the same
// transaction and appends what decide returns. Writers sharing a guard row queue on its lock
// and each decides on the history its predecessors committed, so they do not conflict with
// each other. The insert stays conditional on the sequence read under the lock.
//
// An error from decide rolls the transaction back and is returned as it is.
func (es *EntryStore) DecideAndAppend(
	ctx context.Context,
	filter ledger.Filter,
	guard ledger.AppendGuard,
	decide ledger.DecideFunc,
) (ledger.StorableEntry, error) {

	if err := guard.Validate(); err != nil {
		return ledger.StorableEntry{}, err
	}

	tracing, ctx := es.startDecideAndAppendTracing(ctx)
	metrics := es.startAppendMetrics(ctx)
	start := time.Now()

	selectQuery, err := es.buildSelectQuery(filter)
	if err != nil {
		es.logErrorContext(ctx, logMsgBuildSelectQueryFailed, err)
		tracing.finishError(errorTypeBuildQuery, time.Since(start))
		metrics.recordError(errorTypeBuildQuery, time.Since(start))

		return ledger.StorableEntry{}, err
	}

	var (
		entry                     ledger.StorableEntry
		expectedMaxSequenceNumber ledger.MaxSequenceNumberUint
		rejection                 error
	)

	err = adapters.WithinTx(ctx, es.db, func(tx adapters.Queryer) error {
		if lockErr := es.lockGuardRows(ctx, tx, guard); lockErr != nil {
			return lockErr
		}

		history, maxSequenceNumber, queryErr := es.runQuery(ctx, tx, selectQuery)
		if queryErr != nil {
			return queryErr
		}

		decided, decideErr := decide(history)
		if decideErr != nil {
			rejection = decideErr
			return decideErr
		}

		entry, expectedMaxSequenceNumber = decided, maxSequenceNumber

		insertQuery, buildErr := es.buildInsertQuery(entry, filter, expectedMaxSequenceNumber)
		if buildErr != nil {
			return buildErr
		}

		if insertErr := es.execExpectingRows(ctx, tx, insertQuery, logActionAppend, conflictStepInsert); insertErr != nil {
			return insertErr
		}

		return es.transitionUnit(ctx, tx, guard.Unit)
	})

	if rejection != nil {
		tracing.finishRejected(time.Since(start))
		metrics.recordRejected(time.Since(start))

		return ledger.StorableEntry{}, rejection
	}

	if err := es.finishAppend(ctx, tracing, metrics, entry.EntryType, expectedMaxSequenceNumber, time.Since(start), err); err != nil {
		return ledger.StorableEntry{}, err
	}

	return entry, nil
}

func (es *EntryStore) finishAppend(
	ctx context.Context,
	tracing *appendTracingObserver,
	metrics *appendMetricsObserver,
	entryType string,
	expectedMaxSequenceNumber ledger.MaxSequenceNumberUint,
	duration time.Duration,
	err error,
) error {

	err = mapPostgresError(err)

	switch {
	case err == nil:
		es.logOperationContext(ctx, logMsgEntryAppended,
			logAttrEntryType, entryType,
			logAttrDurationMS, toMilliseconds(duration))
		tracing.finishSuccess(1, duration)
		metrics.recordSuccess(duration)

		return nil

	case errors.Is(err, ledger.ErrConcurrencyConflict):
		es.logOperationContext(ctx, logMsgConcurrencyConflict,
			logAttrEntryType, entryType,
			logAttrExpectedSequence, expectedMaxSequenceNumber)
		tracing.finishError(errorTypeConcurrencyConflict, duration)
		metrics.recordConcurrencyConflict(duration)

		return err

	default:
		es.logErrorContext(ctx, logMsgDBExecFailed, err, logAttrEntryType, entryType)
		tracing.finishError(errorTypeExec, duration)
		metrics.recordError(errorTypeExec, duration)

		return errors.Join(ledger.ErrAppendingEntryFailed, err)
	}
}

// lockGuardRows locks reservation then student, always in that order.
func (es *EntryStore) lockGuardRows(ctx context.Context, tx adapters.Queryer, guard ledger.AppendGuard) error {
	builder := goqu.Dialect(dialectPostgres)
	locks := make([]*goqu.SelectDataset, 0, 2)

	if guard.ReservationID != "" {
		conditions := exp.NewExpressionList(exp.AndType,
			goqu.C(colID).Eq(guard.ReservationID),
			goqu.C(colStatus).Eq(reservationStatusActive),
		)
		if guard.ReservationQuantity > 0 {
			conditions = conditions.Append(goqu.C(colQuantity).Eq(guard.ReservationQuantity))
		}

		locks = append(locks, builder.From(tableReservations).Select(colID).Where(conditions).ForUpdate(exp.Wait))
	}

	if guard.StudentID != "" {
		locks = append(locks, builder.From(tableStudents).Select(colID).
			Where(goqu.C(colID).Eq(guard.StudentID)).
			ForUpdate(exp.Wait))
	}

	for _, lock := range locks {
		sqlQuery, _, err := lock.ToSQL()
		if err != nil {
			return errors.Join(ledger.ErrBuildingQueryFailed, err)
		}

		if err := es.queryExpectingRow(ctx, tx, sqlQuery); err != nil {
			return err
		}
	}

	return nil
}

func (es *EntryStore) queryExpectingRow(ctx context.Context, tx adapters.Queryer, sqlQuery string) error {
	start := time.Now()
	rows, err := tx.Query(ctx, sqlQuery)
	es.logQueryWithDuration(ctx, sqlQuery, logActionLock, time.Since(start))

	if err != nil {
		return err
	}
	defer es.closeRows(ctx, rows)

	found := rows.Next()
	if err := rows.Err(); err != nil {
		return err
	}

	if !found {
		return conflictAt(conflictStepLock)
	}

	return nil
}

func (es *EntryStore) transitionUnit(ctx context.Context, tx adapters.Queryer, transition ledger.UnitTransition) error {
	if transition == (ledger.UnitTransition{}) {
		return nil
	}

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Update(tableUnits).
		Set(goqu.Record{colStatus: transition.To}).
		Where(
			goqu.C(colAssetTag).Eq(transition.AssetTag),
			goqu.C(colStatus).Eq(transition.From),
		).
		ToSQL()
	if err != nil {
		return errors.Join(ledger.ErrBuildingQueryFailed, err)
	}

	return es.execExpectingRows(ctx, tx, sqlQuery, logActionTransition, conflictStepTransition)
}

func (es *EntryStore) execExpectingRows(ctx context.Context, tx adapters.Queryer, sqlQuery, action, conflictStep string) error {
	start := time.Now()
	result, err := tx.Exec(ctx, sqlQuery)
	es.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Join(ledger.ErrGettingRowsAffectedFailed, err)
	}

	if rowsAffected == 0 {
		return conflictAt(conflictStep)
	}

	return nil
}

func (es *EntryStore) buildSelectQuery(filter ledger.Filter) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(tableEntries).
		Select(colEntryType, colOccurredAt, colPayload, colMetadata, colSequenceNumber).
		Order(goqu.I(colSequenceNumber).Asc())

	selectStmt, err := es.addWhereClause(filter, selectStmt)
	if err != nil {
		return "", err
	}

	sqlQuery, _, err := selectStmt.ToSQL()
	if err != nil {
		return "", errors.Join(ledger.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func (es *EntryStore) buildInsertQuery(
	entry ledger.StorableEntry,
	filter ledger.Filter,
	expectedMaxSequenceNumber ledger.MaxSequenceNumberUint,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	cteStmt := builder.
		From(tableEntries).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq))

	cteStmt, err := es.addWhereClause(filter, cteStmt)
	if err != nil {
		return "", err
	}

	selectStmt := builder.
		From(cteContext).
		Select(
			goqu.V(entry.EntryType),
			goqu.L(castTimestamp, entry.OccurredAt.UTC().Format(time.RFC3339Nano)),
			goqu.L(castJsonb, string(entry.PayloadJSON)),
			goqu.L(castJsonb, string(entry.MetadataJSON)),
		).
		Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedMaxSequenceNumber)))

	insertStmt := builder.
		Insert(tableEntries).
		Cols(colEntryType, colOccurredAt, colPayload, colMetadata).
		FromQuery(selectStmt).
		With(cteContext, cteStmt)

	sqlQuery, _, err := insertStmt.ToSQL()
	if err != nil {
		return "", errors.Join(ledger.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func (es *EntryStore) addWhereClause(filter ledger.Filter, selectStmt *goqu.SelectDataset) (*goqu.SelectDataset, error) {
	if filter.IsEmpty() {
		return selectStmt, nil
	}

	itemsExpressions := make([]goqu.Expression, 0, len(filter.Items()))

	for _, item := range filter.Items() {
		entryTypeExpressions := make([]goqu.Expression, 0, len(item.EntryTypes()))
		predicateExpressions := make([]goqu.Expression, 0, len(item.Predicates()))

		for _, entryType := range item.EntryTypes() {
			entryTypeExpressions = append(entryTypeExpressions, goqu.Ex{colEntryType: entryType})
		}

		for _, predicate := range item.Predicates() {
			containment, err := jsoniter.ConfigFastest.MarshalToString(map[string]string{predicate.Key(): predicate.Val()})
			if err != nil {
				return nil, errors.Join(ledger.ErrBuildingQueryFailed, err)
			}

			predicateExpressions = append(predicateExpressions, goqu.L(payloadContains, containment))
		}

		var predicatesExpressionList exp.ExpressionList
		if item.AllPredicatesMustMatch() {
			predicatesExpressionList = goqu.And(predicateExpressions...)
		} else {
			predicatesExpressionList = goqu.Or(predicateExpressions...)
		}

		itemsExpressions = append(itemsExpressions, goqu.And(goqu.Or(entryTypeExpressions...), predicatesExpressionList))
	}

	return selectStmt.Where(goqu.Or(itemsExpressions...)), nil
}

type conflictError struct {
	step string
}

func (e conflictError) Error() string {
	return ledger.ErrConcurrencyConflict.Error() + " (" + e.step + ")"
}

func (e conflictError) Unwrap() error {
	return ledger.ErrConcurrencyConflict
}

func conflictAt(step string) error {
	return conflictError{step: step}
}

// mapPostgresError turns serialization failures and deadlocks into concurrency conflicts,
// for both the pgx and the lib/pq driver.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isRetryableCode(pgErr.Code) {
		return errors.Join(ledger.ErrConcurrencyConflict, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && isRetryableCode(string(pqErr.Code)) {
		return errors.Join(ledger.ErrConcurrencyConflict, err)
	}

	return err
}

func isRetryableCode(code string) bool {
	return code == pgCodeSerializationFailure || code == pgCodeDeadlockDetected
}
