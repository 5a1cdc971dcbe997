package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Workflow.OperationTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Frontend.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("WORKFLOW_OPERATION_TIMEOUT_MS", "250")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Database.DSN())
	assert.Equal(t, 250*time.Millisecond, cfg.Workflow.OperationTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Frontend.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: "production",
			JWT:         JWTConfig{SecretKey: "s3cret"},
			Database:    DatabaseConfig{Driver: "postgres", Password: "pw"},
			Workflow:    WorkflowConfig{OperationTimeout: time.Second},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.JWT.SecretKey = defaultJWTSecret
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Password = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Workflow.OperationTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", Database: "lic", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=lic sslmode=disable", d.DSN())
}
