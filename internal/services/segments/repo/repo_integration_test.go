//go:build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	perr "emolens/internal/platform/errors"
	"emolens/internal/platform/store"
	"emolens/internal/services/segments/domain"
)

const schema = `CREATE TABLE results (
	id             bigserial PRIMARY KEY,
	interview_id   bigint NOT NULL,
	speaker        int NOT NULL,
	part           int NOT NULL,
	start_s        double precision NOT NULL,
	end_s          double precision NOT NULL,
	video_emotions jsonb,
	audio_emotions jsonb
)`

func startPostgres(t *testing.T) store.TxRunner {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}

	st, err := store.Open(ctx, store.Config{
		AppName: "emolens-segments-it",
		PG: store.PGConfig{
			Enabled:        true,
			URL:            fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port()),
			MaxConns:       2,
			ConnectRetries: 20,
			PingTimeout:    3 * time.Second,
		},
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	if _, err := st.PG.Exec(ctx, schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return st.PG
}

func TestResults_Integration(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	for _, r := range [][]any{
		{int64(9), 1, 1, 10.0, 14.0},
		{int64(9), 0, 0, 0.0, 4.5},
		{int64(9), 1, 0, 4.5, 10.0},
		{int64(8), 0, 0, 0.0, 1.0},
	} {
		if _, err := db.Exec(ctx, `INSERT INTO results (interview_id, speaker, part, start_s, end_s) VALUES ($1,$2,$3,$4,$5)`, r...); err != nil {
			t.Fatal(err)
		}
	}

	s := NewPG().Bind(db)
	segs, err := s.List(ctx, 9)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(segs) != 3 || segs[0].SpeakerID != 0 || segs[1].Part != 0 || segs[2].Start != 10 {
		t.Fatalf("segs = %+v", segs)
	}

	if err := s.Update(ctx, segs[0].Key(), domain.ColumnVideo, []byte(`{"sample_00000":{"happy":100}}`)); err != nil {
		t.Fatalf("Update by id: %v", err)
	}
	byPart := domain.Key{InterviewID: 9, SpeakerID: 1, Part: 1}
	if err := s.Update(ctx, byPart, domain.ColumnAudio, []byte(`{"sad":60,"happy":40}`)); err != nil {
		t.Fatalf("Update by part: %v", err)
	}

	var happy float64
	if err := db.QueryRow(ctx, `SELECT (video_emotions->'sample_00000'->>'happy')::float8 FROM results WHERE id = $1`, segs[0].ID).Scan(&happy); err != nil || happy != 100 {
		t.Fatalf("video_emotions happy = %v err = %v", happy, err)
	}

	err = s.Update(ctx, domain.Key{InterviewID: 9, SpeakerID: 4, Part: 0}, domain.ColumnAudio, []byte(`{}`))
	if !perr.IsCode(err, perr.ErrorCodePersistence) {
		t.Fatalf("missing row err = %v", err)
	}
}
