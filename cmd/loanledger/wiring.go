package main

import (
	"context"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/catalog/postgrescatalog"
	"github.com/classroom-devices/loanledger/config"
	"github.com/classroom-devices/loanledger/features/command/bookreservation"
	"github.com/classroom-devices/loanledger/features/command/cancelreservation"
	"github.com/classroom-devices/loanledger/features/command/checkoutunit"
	"github.com/classroom-devices/loanledger/features/command/editreservation"
	"github.com/classroom-devices/loanledger/features/command/returnunit"
	"github.com/classroom-devices/loanledger/features/query/availableunits"
	"github.com/classroom-devices/loanledger/features/query/checkoutcontext"
	"github.com/classroom-devices/loanledger/features/query/loanslentout"
	"github.com/classroom-devices/loanledger/features/query/teacherreservations"
	"github.com/classroom-devices/loanledger/features/query/validatereservation"
	"github.com/classroom-devices/loanledger/httpapi"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/internal/adapters"
	"github.com/classroom-devices/loanledger/ledger/postgresengine"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
	"github.com/classroom-devices/loanledger/shared/shell/observable"
)

// observability holds the collectors shared by the stores and the handler wrappers. The contextual
// logger, metrics and tracing are nil unless OpenTelemetry is enabled. Where set, the contextual
// logger is used in preference to the plain one.
type observability struct {
	logger           shell.Logger
	contextualLogger shell.ContextualLogger
	metrics          shell.MetricsCollector
	tracing          shell.TracingCollector
}

type stores struct {
	entries  *postgresengine.EntryStore
	catalog  *postgrescatalog.Catalog
	migrator adapters.Queryer
	close    func()
}

// openStores connects with the adapter named by cfg.AdapterType. The catalog reads loan entries
// through the entry store inside its own transactions.
func openStores(ctx context.Context, cfg config.Config, obs observability) (stores, error) {
	engineOptions := []postgresengine.Option{postgresengine.WithLogger(obs.logger)}
	if obs.contextualLogger != nil {
		engineOptions = append(engineOptions, postgresengine.WithContextualLogger(obs.contextualLogger))
	}
	if obs.metrics != nil {
		engineOptions = append(engineOptions, postgresengine.WithMetrics(obs.metrics))
	}
	if obs.tracing != nil {
		engineOptions = append(engineOptions, postgresengine.WithTracing(obs.tracing))
	}
	catalogLogging := postgrescatalog.WithLogger(obs.logger)

	switch cfg.AdapterType {
	case config.AdapterSQLDB:
		db, err := config.OpenSQLDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}

		entries, err := postgresengine.NewEntryStoreFromSQLDB(db, engineOptions...)
		if err != nil {
			_ = db.Close()
			return stores{}, err
		}

		cat, err := postgrescatalog.NewCatalogFromSQLDB(db, entries, catalogLogging)
		if err != nil {
			_ = db.Close()
			return stores{}, err
		}

		return stores{entries: entries, catalog: cat, migrator: adapters.NewSQLAdapter(db), close: closeDB(db)}, nil

	case config.AdapterSQLXDB:
		db, err := config.OpenSQLX(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}

		entries, err := postgresengine.NewEntryStoreFromSQLX(db, engineOptions...)
		if err != nil {
			_ = db.Close()
			return stores{}, err
		}

		cat, err := postgrescatalog.NewCatalogFromSQLX(db, entries, catalogLogging)
		if err != nil {
			_ = db.Close()
			return stores{}, err
		}

		return stores{entries: entries, catalog: cat, migrator: adapters.NewSQLXAdapter(db), close: closeDB(db)}, nil

	default:
		pool, err := config.OpenPGXPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		closeAll := pool.Close

		var entries *postgresengine.EntryStore
		if cfg.ReplicaURL != "" {
			replica, err := config.OpenPGXPool(ctx, cfg.ReplicaURL)
			if err != nil {
				pool.Close()
				return stores{}, err
			}
			closeAll = func() {
				replica.Close()
				pool.Close()
			}

			entries, err = postgresengine.NewEntryStoreFromPGXPoolAndReplica(pool, replica, engineOptions...)
			if err != nil {
				closeAll()
				return stores{}, err
			}
		} else {
			entries, err = postgresengine.NewEntryStoreFromPGXPool(pool, engineOptions...)
			if err != nil {
				closeAll()
				return stores{}, err
			}
		}

		cat, err := postgrescatalog.NewCatalogFromPGXPool(pool, entries, catalogLogging)
		if err != nil {
			closeAll()
			return stores{}, err
		}

		return stores{entries: entries, catalog: cat, migrator: adapters.NewPGXAdapter(pool), close: closeAll}, nil
	}
}

func closeDB(db interface{ Close() error }) func() {
	return func() {
		_ = db.Close()
	}
}

func buildHandlers(st stores, resolver *identity.Resolver, cal calendar.Calendar, obs observability) (httpapi.Handlers, error) {
	var (
		handlers httpapi.Handlers
		err      error
	)

	handlers.Checkout, err = wrapCommand[checkoutunit.Command, core.Loan](
		checkoutunit.NewCommandHandler(st.entries, st.catalog, resolver,
			checkoutunit.WithCalendar(cal),
			checkoutunit.WithRetryOptions(retryOptions(obs, checkoutunit.Command{}.CommandType())...),
		), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	handlers.Return, err = wrapCommand[returnunit.Command, core.Loan](
		returnunit.NewCommandHandler(st.entries, resolver,
			returnunit.WithRetryOptions(retryOptions(obs, returnunit.Command{}.CommandType())...),
		), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	handlers.BookReservation, err = wrapCommand[bookreservation.Command, catalog.Reservation](
		bookreservation.NewCommandHandler(st.catalog,
			bookreservation.WithCalendar(cal),
			bookreservation.WithRetryOptions(retryOptions(obs, bookreservation.Command{}.CommandType())...),
		), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	handlers.EditReservation, err = wrapCommand[editreservation.Command, catalog.Reservation](
		editreservation.NewCommandHandler(st.catalog,
			editreservation.WithCalendar(cal),
			editreservation.WithRetryOptions(retryOptions(obs, editreservation.Command{}.CommandType())...),
		), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	handlers.CancelReservation, err = wrapCommand[cancelreservation.Command, catalog.Reservation](
		cancelreservation.NewCommandHandler(st.catalog,
			cancelreservation.WithCalendar(cal),
			cancelreservation.WithRetryOptions(retryOptions(obs, cancelreservation.Command{}.CommandType())...),
		), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	handlers.AvailableUnits, err = wrapQuery[availableunits.Query, availableunits.AvailableUnits](
		availableunits.NewQueryHandler(st.catalog, cal), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	handlers.ValidateReservation, err = wrapQuery[validatereservation.Query, validatereservation.Verdict](
		validatereservation.NewQueryHandler(st.catalog, cal), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	handlers.CheckoutContext, err = wrapQuery[checkoutcontext.Query, checkoutcontext.CheckoutContext](
		checkoutcontext.NewQueryHandler(st.entries, st.catalog, resolver, checkoutcontext.WithCalendar(cal)), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	handlers.LoansLentOut, err = wrapQuery[loanslentout.Query, loanslentout.LoansLentOut](
		loanslentout.NewQueryHandler(st.entries, st.catalog), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	handlers.TeacherReservations, err = wrapQuery[teacherreservations.Query, teacherreservations.TeacherReservations](
		teacherreservations.NewQueryHandler(st.entries, st.catalog), obs)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	return handlers, nil
}

// retryOptions labels the retry metrics of a command handler with commandType.
func retryOptions(obs observability, commandType string) []shell.RetryOption {
	if obs.metrics == nil {
		return nil
	}

	return []shell.RetryOption{shell.WithMetrics(obs.metrics, commandType)}
}

func wrapCommand[C shell.Command, R any](
	coreHandler shell.CommandHandler[C, R],
	obs observability,
) (shell.CommandHandler[C, R], error) {

	opts := []observable.CommandOption[C, R]{observable.WithCommandLogging[C, R](obs.logger)}
	if obs.contextualLogger != nil {
		opts = append(opts, observable.WithCommandContextualLogging[C, R](obs.contextualLogger))
	}
	if obs.metrics != nil {
		opts = append(opts, observable.WithCommandMetrics[C, R](obs.metrics))
	}
	if obs.tracing != nil {
		opts = append(opts, observable.WithCommandTracing[C, R](obs.tracing))
	}

	wrapper, err := observable.NewCommandWrapper(coreHandler, opts...)
	if err != nil {
		return nil, err
	}

	return wrapper, nil
}

func wrapQuery[Q shell.Query, R any](
	coreHandler shell.QueryHandler[Q, R],
	obs observability,
) (shell.QueryHandler[Q, R], error) {

	opts := []observable.QueryOption[Q, R]{observable.WithQueryLogging[Q, R](obs.logger)}
	if obs.contextualLogger != nil {
		opts = append(opts, observable.WithQueryContextualLogging[Q, R](obs.contextualLogger))
	}
	if obs.metrics != nil {
		opts = append(opts, observable.WithQueryMetrics[Q, R](obs.metrics))
	}
	if obs.tracing != nil {
		opts = append(opts, observable.WithQueryTracing[Q, R](obs.tracing))
	}

	wrapper, err := observable.NewQueryWrapper(coreHandler, opts...)
	if err != nil {
		return nil, err
	}

	return wrapper, nil
}
