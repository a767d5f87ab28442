//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/db"
	"github.com/taskboard/apiserver/internal/server"
)

const serverPort = 18080

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		shutdownServer(srv)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	shutdownServer(srv)
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

// TestBoardLifecycle walks the happy path: register two users, create a
// project, invite and accept, build a board, create and move a task,
// comment on it, and finally delete the task.
func TestBoardLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()

	ownerToken, _ := register(t, baseURL, fmt.Sprintf("owner_%d@example.com", suffix), "Owner")
	memberToken, memberID := register(t, baseURL, fmt.Sprintf("member_%d@example.com", suffix), "Member")

	// Project owned by the first user.
	project := postJSON(t, baseURL+"/projects", ownerToken, map[string]any{
		"name": "Release Board",
	}, http.StatusCreated)
	projectID := int(project["id"].(float64))
	if projectID == 0 {
		t.Fatalf("expected project id, got %v", project)
	}

	// The second user cannot see the project before joining.
	requestStatus(t, http.MethodGet, fmt.Sprintf("%s/projects/%d", baseURL, projectID), memberToken, nil, http.StatusForbidden)
	// A missing project 404s even for non-members.
	requestStatus(t, http.MethodGet, fmt.Sprintf("%s/projects/%d", baseURL, 999999), memberToken, nil, http.StatusNotFound)

	// Invite and accept.
	postJSON(t, fmt.Sprintf("%s/projects/%d/members", baseURL, projectID), ownerToken, map[string]any{
		"user_id": memberID,
	}, http.StatusCreated)
	postJSON(t, fmt.Sprintf("%s/projects/%d/members/accept", baseURL, projectID), memberToken, nil, http.StatusOK)

	// Board setup.
	todo := postJSON(t, fmt.Sprintf("%s/projects/%d/columns", baseURL, projectID), ownerToken, map[string]any{
		"title": "To Do",
	}, http.StatusCreated)
	done := postJSON(t, fmt.Sprintf("%s/projects/%d/columns", baseURL, projectID), ownerToken, map[string]any{
		"title": "Done",
	}, http.StatusCreated)
	todoID := int(todo["id"].(float64))
	doneID := int(done["id"].(float64))
	if pos := int(todo["position"].(float64)); pos != 0 {
		t.Fatalf("first column position = %d, want 0", pos)
	}
	if pos := int(done["position"].(float64)); pos != 1 {
		t.Fatalf("second column position = %d, want 1", pos)
	}

	// Member creates tasks in the first column; positions fill the
	// tail in order.
	task := postJSON(t, fmt.Sprintf("%s/projects/%d/tasks", baseURL, projectID), memberToken, map[string]any{
		"column_id": todoID,
		"title":     "Ship the release",
		"priority":  "high",
	}, http.StatusCreated)
	taskID := int(task["id"].(float64))
	if pos := int(task["position"].(float64)); pos != 0 {
		t.Fatalf("first task position = %d, want 0", pos)
	}
	second := postJSON(t, fmt.Sprintf("%s/projects/%d/tasks", baseURL, projectID), memberToken, map[string]any{
		"column_id": todoID,
		"title":     "Write the changelog",
	}, http.StatusCreated)
	if pos := int(second["position"].(float64)); pos != 1 {
		t.Fatalf("second task position = %d, want 1", pos)
	}

	// Move it to the second column.
	moved := postJSON(t, fmt.Sprintf("%s/projects/%d/tasks/%d/move", baseURL, projectID, taskID), memberToken, map[string]any{
		"column_id": doneID,
		"position":  0,
	}, http.StatusOK)
	if got := int(moved["column_id"].(float64)); got != doneID {
		t.Fatalf("moved task column = %d, want %d", got, doneID)
	}

	// Comment on it.
	postJSON(t, fmt.Sprintf("%s/projects/%d/tasks/%d/comments", baseURL, projectID, taskID), ownerToken, map[string]any{
		"body": "Nice work",
	}, http.StatusCreated)

	// Delete and verify it is gone.
	requestStatus(t, http.MethodDelete, fmt.Sprintf("%s/projects/%d/tasks/%d", baseURL, projectID, taskID), memberToken, nil, http.StatusOK)
	requestStatus(t, http.MethodGet, fmt.Sprintf("%s/projects/%d/tasks/%d", baseURL, projectID, taskID), memberToken, nil, http.StatusNotFound)

	// Remove the member and invite them again; the old membership row
	// must not block the re-invite.
	requestStatus(t, http.MethodDelete, fmt.Sprintf("%s/projects/%d/members/%d", baseURL, projectID, memberID), ownerToken, nil, http.StatusOK)
	requestStatus(t, http.MethodGet, fmt.Sprintf("%s/projects/%d", baseURL, projectID), memberToken, nil, http.StatusForbidden)
	postJSON(t, fmt.Sprintf("%s/projects/%d/members", baseURL, projectID), ownerToken, map[string]any{
		"user_id": memberID,
	}, http.StatusCreated)
	postJSON(t, fmt.Sprintf("%s/projects/%d/members/accept", baseURL, projectID), memberToken, nil, http.StatusOK)
	requestStatus(t, http.MethodGet, fmt.Sprintf("%s/projects/%d", baseURL, projectID), memberToken, nil, http.StatusOK)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func register(t *testing.T, baseURL, email, name string) (token string, userID int) {
	t.Helper()

	payload := map[string]string{
		"email":    email,
		"name":     name,
		"password": "testpass123!",
	}
	body, _ := json.Marshal(payload)

	resp, err := http.Post(baseURL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	var data struct {
		Token string `json:"token"`
		User  struct {
			ID int `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode register data: %v", err)
	}
	if data.Token == "" || data.User.ID == 0 {
		t.Fatalf("incomplete register response: %s", env.Data)
	}
	return data.Token, data.User.ID
}

// postJSON sends an authorized POST and returns the envelope data as a
// generic map.
func postJSON(t *testing.T, url, token string, payload any, wantStatus int) map[string]any {
	t.Helper()

	data := requestStatus(t, http.MethodPost, url, token, payload, wantStatus)
	if len(data) == 0 {
		return nil
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("decode data from %s: %v", url, err)
	}
	return parsed
}

func requestStatus(t *testing.T, method, url, token string, payload any, wantStatus int) json.RawMessage {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s status %d, want %d: %s", method, url, resp.StatusCode, wantStatus, strings.TrimSpace(string(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope from %s: %v", url, err)
	}
	return env.Data
}

func waitForPostgres(ctx context.Context) error {
	setTestEnv()
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	setTestEnv()
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New("file://"+migrationsPath, db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	setTestEnv()
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func shutdownServer(srv *server.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "taskboard")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "taskboard_db")
	_ = os.Setenv("DB_USE_SSL", "false")
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
