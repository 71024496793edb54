// Command healthcheck connects to the configured database and reports whether it answers.
// Exit status 1 means unhealthy, for use in container HEALTHCHECK directives.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"ideaboard/internal/config"
	"ideaboard/internal/db"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type result struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
	Latency  string `json:"latency"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	conn, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	res := result{Status: "healthy", Database: cfg.DBType}
	if err := db.Ping(ctx, conn); err != nil {
		res.Status = "unhealthy"
		res.Error = err.Error()
	}
	res.Latency = time.Since(start).String()

	output, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logrus.Fatalf("Failed to marshal health check result: %v", err)
	}
	fmt.Println(string(output))

	if res.Status != "healthy" {
		os.Exit(1)
	}
}
