// Package migrations применяет версионированные миграции MongoDB (индексы коллекций).
package migrations

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mongodb"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.mongodb.org/mongo-driver/mongo"
)

const migrationsCollection = "schema_migrations"

// ErrDirty схема осталась в незавершённом состоянии после упавшей миграции.
var ErrDirty = errors.New("schema is dirty")

// Run применяет все новые миграции из каталога path к базе database
// и возвращает итоговую версию схемы.
func Run(client *mongo.Client, database, path string) (uint, error) {
	const op = "migrations.Run"

	driver, err := mongodb.WithInstance(client, &mongodb.Config{
		DatabaseName:         database,
		MigrationsCollection: migrationsCollection,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: driver: %w", op, err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "mongodb", driver)
	if err != nil {
		return 0, fmt.Errorf("%s: source %s: %w", op, path, err)
	}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return 0, fmt.Errorf("%s: %w", op, ErrDirty)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("%s: up: %w", op, err)
	}

	version, _, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%s: version: %w", op, err)
	}
	return version, nil
}
