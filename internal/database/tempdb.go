package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateTempDatabase creates a scratch database and returns a pool connected to it.
// Scripts can be loaded into it to check them without touching the target database.
func CreateTempDatabase(ctx context.Context, adminPool *Pool) (*Pool, error) {
	timestamp := time.Now().Format("20060102_150405")
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random suffix: %w", err)
	}
	randomSuffix := hex.EncodeToString(randomBytes)
	dbName := fmt.Sprintf("%s_tmp_%s_%s", applicationName, timestamp, randomSuffix)

	_, err := adminPool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary database: %w", err)
	}

	// Keep all original connection options (sslmode, etc.), only swap the database
	config := adminPool.Pool.Config()
	config.ConnConfig.Database = dbName

	tempPool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		_, _ = adminPool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize())
		return nil, fmt.Errorf("failed to connect to temp database: %w", err)
	}

	return &Pool{Pool: tempPool, config: adminPool.config}, nil
}

// DestroyTempDatabase closes the temp pool and drops its underlying database.
func DestroyTempDatabase(ctx context.Context, adminPool *Pool, tempPool *Pool) error {
	if tempPool == nil || tempPool.Pool == nil {
		return nil
	}
	name := tempPool.Pool.Config().ConnConfig.Database
	tempPool.Close()
	_, err := adminPool.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{name}.Sanitize()))
	return err
}
