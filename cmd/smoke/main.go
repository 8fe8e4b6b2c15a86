package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type client struct {
	base  string
	http  *http.Client
	token string
}

func (c *client) call(method, path string, body any, out any) int {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal %s: %v", path, err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, payload)
	if err != nil {
		log.Fatalf("request %s: %v", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func expect(step string, got, want int) {
	if got != want {
		log.Fatalf("%s: status %d, want %d", step, got, want)
	}
}

func main() {
	log.SetFlags(0)
	base := strings.TrimRight(envOr("TASKLANE_SMOKE_URL", "http://localhost:8080"), "/")

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}
	c := &client{base: base, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}

	expect("healthz", c.call(http.MethodGet, "/healthz", nil, nil), http.StatusOK)

	username := "smoke-" + uuid.NewString()[:8]
	password := uuid.NewString()
	var account struct {
		ID int64 `json:"id"`
	}
	expect("register", c.call(http.MethodPost, "/accounts/register", map[string]string{
		"username": username,
		"password": password,
		"email":    username + "@smoke.invalid",
	}, &account), http.StatusCreated)

	expect("anonymous todos", c.call(http.MethodGet, "/todos/my", nil, nil), http.StatusUnauthorized)

	var login struct {
		Token string `json:"token"`
	}
	expect("login", c.call(http.MethodPost, "/accounts/login", map[string]string{
		"username": username,
		"password": password,
	}, &login), http.StatusOK)
	c.token = login.Token
	mode := "session"
	if c.token != "" {
		mode = "token"
	}

	var todo struct {
		ID        int64 `json:"id"`
		AccountID int64 `json:"accountId"`
	}
	expect("create todo", c.call(http.MethodPost, "/todos", map[string]string{"title": "smoke"}, &todo), http.StatusCreated)
	if todo.AccountID != account.ID {
		log.Fatalf("todo bound to account %d, want %d", todo.AccountID, account.ID)
	}
	var mine []json.RawMessage
	expect("list todos", c.call(http.MethodGet, "/todos/my", nil, &mine), http.StatusOK)
	if len(mine) != 1 {
		log.Fatalf("expected 1 todo, got %d", len(mine))
	}

	expect("delete account", c.call(http.MethodDelete, fmt.Sprintf("/accounts/%d", account.ID), nil, nil), http.StatusNoContent)
	expect("logout", c.call(http.MethodPost, "/accounts/logout", nil, nil), http.StatusOK)
	if mode == "session" {
		expect("after logout", c.call(http.MethodGet, "/todos/my", nil, nil), http.StatusUnauthorized)
	}

	if addr := os.Getenv("TASKLANE_SMOKE_GRPC_ADDR"); addr != "" {
		checkGRPCHealth(addr)
	}

	fmt.Printf("tasklane smoke test passed: mode=%s account=%d todo=%d\n", mode, account.ID, todo.ID)
}

func checkGRPCHealth(addr string) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dial grpc %s: %v", addr, err)
	}
	defer conn.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		log.Fatalf("grpc health: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		log.Fatalf("grpc health status %s", resp.GetStatus())
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
