package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	config := GetConfig("config.json")
	if config.Dir == "" {
		// Anchor static lookups next to the binary, like the demo
		// expects, regardless of the invocation directory.
		exe, err := os.Executable()
		if err != nil {
			log.Fatal(err)
		}
		config.Dir = filepath.Dir(exe)
	}

	var mets *metrics
	mux := http.NewServeMux()
	if config.Metrics {
		reg := prometheus.NewRegistry()
		mets = newMetrics(reg)
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	if config.Relay {
		var store eventStore = newMemoryStore()
		if config.DB != nil {
			store = InitDB(*config.DB)
		}
		mux.Handle("/relay", newRelay(store, mets))
		log.Println("embedded relay mounted on /relay")
	}

	mux.Handle("/", newDemoHandler(config.Dir, os.Stdout, mets))

	banner(config)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	fmt.Println("\n\n🛑 Server stopped")
}

func banner(config Config) {
	color.New(color.FgGreen, color.Bold).Println("🚀 Starting PubSub Demo PWA Server")
	fmt.Printf("📂 Serving from: %s\n", config.Dir)
	color.Cyan("🌐 URL: http://localhost:%d", config.Port)
	fmt.Println("📱 Use this URL as your target URI in the PWA")
	fmt.Println(strings.Repeat("=", 50))
}
