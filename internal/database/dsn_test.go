package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "wedding", Name: "wedding"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=wedding dbname=wedding sslmode=disable", dsn)
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "public",
		},
	})
	require.NoError(t, err)

	for _, part := range []string{
		"host=db.example.com",
		"port=6543",
		"password=pass",
		"search_path=public sslmode=require",
	} {
		require.Contains(t, dsn, part)
	}
}

func TestBuildPostgresDSNPassesURLThrough(t *testing.T) {
	url := "postgres://user:pass@db:5432/wedding?sslmode=require"
	dsn, err := buildPostgresDSN(Config{DSN: url})
	require.NoError(t, err)
	require.Equal(t, url, dsn)
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "p@ss:word",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"timeout": "5s"},
	})
	require.NoError(t, err)

	require.Contains(t, dsn, "user:p@ss:word@tcp(db.example.com:3307)/db?")
	require.Contains(t, dsn, "parseTime=true")
	require.Contains(t, dsn, "charset=utf8mb4")
	require.Contains(t, dsn, "timeout=5s")
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}
