// Command telemetrond runs the default Watcher on its configured schedule
// and serves its latest tick plus a Prometheus mirror over HTTP. It is the
// minimal host process this module's components are built to be embedded
// in, not a product in its own right.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"telemetron/app"
	"telemetron/config"
)

func main() {
	addr := flag.String("addr", ":8090", "HTTP listen address for /watch and /metrics")
	prometheus := flag.Bool("prometheus", true, "mirror SystemStatus onto a Prometheus /metrics endpoint")
	otel := flag.Bool("otel", false, "mirror Meter terminal events onto an OTel MeterProvider")
	flag.Parse()

	a := app.New(app.Options{
		Config:           config.Default(),
		Logger:           "telemetrond",
		EnablePrometheus: *prometheus,
		EnableOTel:       *otel,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	a.Start(ctx)
	defer a.Stop()

	srv := &http.Server{Addr: *addr, Handler: a.Mux()}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Printf("telemetrond listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("telemetrond: %v", err)
	}
}
