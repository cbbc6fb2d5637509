// Command toridb starts the engine: it loads configuration from the
// environment, bootstraps the default database's on-disk state, wires the
// dispatcher through its metrics and scheduling layers, and serves RESP
// connections until told to stop.
package main

import (
	"bufio"
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UnSetSoft/ToriDB/internal/config"
	"github.com/UnSetSoft/ToriDB/internal/dispatcher"
	"github.com/UnSetSoft/ToriDB/internal/metrics"
	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/scheduler"
	"github.com/UnSetSoft/ToriDB/internal/session"
)

const (
	submitTimeout = 5 * time.Second
	queueSize     = 1024
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("toridb: config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("toridb: create data dir %q: %v", cfg.DataDir, err)
	}

	reg := registry.New(cfg.DataDir, cfg.FsyncEveryN)
	acl := session.NewACL(cfg.Password)

	db, aclSnapshot, err := reg.Bootstrap(cfg.DBName, dispatcher.ReplayInto)
	if err != nil {
		log.Fatalf("toridb: bootstrap database %q: %v", cfg.DBName, err)
	}
	log.Printf("toridb: database %q recovered (snapshot + log replay)", db.Name)

	if len(aclSnapshot) > 0 {
		if err := acl.LoadSnapshot(aclSnapshot); err != nil {
			log.Fatalf("toridb: load ACL snapshot for %q: %v", cfg.DBName, err)
		}
		log.Printf("toridb: ACL restored from %q's snapshot", cfg.DBName)
	}
	if err := config.LoadACLFile(cfg.ACLFile, acl); err != nil {
		log.Fatalf("toridb: load ACL bootstrap file: %v", err)
	}

	disp := dispatcher.New(reg, acl)
	instrumented := metrics.Instrumented{Next: disp}

	pool := scheduler.NewPool(cfg.Workers, queueSize, instrumented)
	pool.Start()

	ticker := scheduler.NewTicker(reg, disp)
	if err := ticker.Start(cfg.SweepInterval, cfg.CheckpointInterval); err != nil {
		log.Fatalf("toridb: start scheduler ticks: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Printf("toridb: metrics listening on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("toridb: metrics server error: %v", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		log.Fatalf("toridb: listen on %s: %v", cfg.Addr(), err)
	}
	log.Printf("toridb: listening on %s", cfg.Addr())

	go acceptLoop(ln, disp, pool)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	log.Printf("toridb: shutting down")
	_ = ln.Close()
	ticker.Stop()
	if err := pool.Stop(10 * time.Second); err != nil {
		log.Printf("toridb: pool shutdown: %v", err)
	}
	if err := reg.CloseAll(); err != nil {
		log.Printf("toridb: close databases: %v", err)
	}
}

func acceptLoop(ln net.Listener, disp *dispatcher.Dispatcher, pool *scheduler.Pool) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("toridb: accept: %v", err)
			return
		}
		go serveConn(conn, disp, pool)
	}
}

func serveConn(conn net.Conn, disp *dispatcher.Dispatcher, pool *scheduler.Pool) {
	defer conn.Close()

	sess := session.New()
	sess.SetAddr(conn.RemoteAddr().String())
	disp.Clients.Register(sess)
	defer disp.Clients.Unregister(sess)

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		if sess.Killed() {
			return
		}
		args, err := resp.ReadRequest(r)
		if err != nil {
			return
		}

		reply := make(chan resp.Reply, 1)
		job := scheduler.Job{Session: sess, Args: args, Reply: reply}
		if err := pool.Submit(context.Background(), job, submitTimeout); err != nil {
			resp.Err(resp.ErrInternal, err.Error()).WriteTo(w)
			w.Flush()
			return
		}

		result := <-reply
		if err := result.WriteTo(w); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
		if sess.Killed() {
			return
		}
	}
}
