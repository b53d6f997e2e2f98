package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	poolMetricName = "edrs_postgres_pool_connections"
	poolMetricHelp = "Connections in the Postgres pool by state."

	migrationsDir        = "migrations"
	migrationsSourceName = "iofs"

	defaultListLimit   = 100
	recentUploadsLimit = 10
	recentUploadsDays  = 30

	errUserNotFound     = "user not found"
	errDocumentNotFound = "document not found"
	errDocumentExists   = "a document is already registered at this storage key"
	errUserRoleInvalid  = "user has an unrecognised role"

	errRegistryUnavailable = "document registry unavailable"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"
	errFailedOpenMigrationsFmt       = "failed to open embedded migrations: %w"
	errFailedInitMigrationsFmt       = "failed to initialise migrations: %w"
	errFailedApplyMigrationsFmt      = "failed to apply migrations: %w"

	errFailedUpsertUserFmt = "failed to upsert user: %w"
	errFailedGetUserFmt    = "failed to get user: %w"

	errFailedCreateDocumentFmt = "failed to create document: %w"
	errFailedGetDocumentFmt    = "failed to get document: %w"
	errFailedListDocumentsFmt  = "failed to list documents: %w"
	errFailedScanDocumentFmt   = "failed to scan document: %w"
	errIterateDocumentsFmt     = "error iterating documents: %w"
	errFailedDocumentStatsFmt  = "failed to compute document stats: %w"
)

var (
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }
	errFailedOpenMigrations       = func(err error) error { return fmt.Errorf(errFailedOpenMigrationsFmt, err) }
	errFailedInitMigrations       = func(err error) error { return fmt.Errorf(errFailedInitMigrationsFmt, err) }
	errFailedApplyMigrations      = func(err error) error { return fmt.Errorf(errFailedApplyMigrationsFmt, err) }
	errFailedUpsertUser           = func(err error) error { return wrapQueryError(errFailedUpsertUserFmt, err) }
	errFailedGetUser              = func(err error) error { return wrapQueryError(errFailedGetUserFmt, err) }
	errFailedCreateDocument       = func(err error) error { return wrapQueryError(errFailedCreateDocumentFmt, err) }
	errFailedGetDocument          = func(err error) error { return wrapQueryError(errFailedGetDocumentFmt, err) }
	errFailedListDocuments        = func(err error) error { return wrapQueryError(errFailedListDocumentsFmt, err) }
	errFailedScanDocument         = func(err error) error { return fmt.Errorf(errFailedScanDocumentFmt, err) }
	errIterateDocuments           = func(err error) error { return fmt.Errorf(errIterateDocumentsFmt, err) }
	errFailedDocumentStats        = func(err error) error { return wrapQueryError(errFailedDocumentStatsFmt, err) }
)
