package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "s3cret", Name: "agendamento"})
	assert.Equal(t, "host=db port=5432 user=app password=s3cret dbname=agendamento sslmode=disable timezone=UTC application_name=agendamento-api", dsn)
}

func TestDSNQuotesSpecialValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: `it's a pass`, Name: "agendamento", SSLMode: "require"})
	assert.Contains(t, dsn, `password='it\'s a pass'`)
	assert.Contains(t, dsn, "sslmode=require")
	assert.Contains(t, DSN(config.DatabaseConfig{}), "password=''")
}
