// Package main probes the local server for container health checks.
// Exit code 0 means healthy.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/garyellow/uni-assistant-go/internal/config"
)

var readyFlag = flag.Bool("ready", false, "Probe /ready instead of /healthz")

func main() {
	flag.Parse()

	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "10000"
	}
	path := "/healthz"
	if *readyFlag {
		path = "/ready"
	}

	client := &http.Client{Timeout: 8 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s%s", port, path))
	if err != nil {
		os.Exit(1)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
