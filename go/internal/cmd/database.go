package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/brainstormlabs/brainstormx/go/internal/dbconfig"
)

func setupDatabase() (*sql.DB, dbconfig.Config, error) {
	cfg := dbconfig.NewConfigFromEnv()

	database, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := database.Ping(); err != nil {
		return nil, cfg, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Connected to database: %s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Database)
	return database, cfg, nil
}
