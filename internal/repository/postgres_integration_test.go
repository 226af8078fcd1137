//go:build integration

package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/RealZimboGuy/gophertrigger/internal/config"
	"github.com/RealZimboGuy/gophertrigger/internal/migrations"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_USER":     "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("error starting postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	dsn := "postgres://test:test@" + host + ":" + port.Port() + "/testdb?sslmode=disable"

	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_POSTGRES)
	t.Setenv(config.DATABASE_URL, dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("error connecting to postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Ping(); err != nil {
		t.Fatalf("error pinging postgres: %v", err)
	}
	if err := migrations.Run(migrations.Postgres, dsn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}

func TestPostgres_WorkflowLifecycle(t *testing.T) {
	db := setupPostgres(t)
	clock := newClock()
	workflows := NewWorkflowRepository(db, clock)
	executions := NewActionExecutionRepository(db)
	ctx := context.Background()

	id, err := workflows.Save(ctx, sampleWorkflow())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	found, err := workflows.FindByModelTypeAndEvent(ctx, "user", domain.ModelEventCreated)
	if err != nil || len(found) != 1 || found[0].ID != id {
		t.Fatalf("lookup: %+v, %v", found, err)
	}
	for i := 0; i < 5; i++ {
		if err := workflows.AppendLog(ctx, id, "line", 2); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if logs, _ := workflows.GetLogs(ctx, id); len(logs) != 2 {
		t.Errorf("expected 2 log lines, got %d", len(logs))
	}
	_, err = executions.Save(ctx, &domain.ActionExecution{WorkflowID: id, ActionID: "send-webhook",
		Status: domain.ExecutionSucceeded, Created: clock.Now()})
	if err != nil {
		t.Fatalf("save execution: %v", err)
	}
	if n, _ := executions.CountByWorkflowID(ctx, id); n != 1 {
		t.Errorf("expected one execution, got %d", n)
	}
}
