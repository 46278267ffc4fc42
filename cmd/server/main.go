package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	glog "github.com/labstack/gommon/log"

	"github.com/ankur-foundation/ngo-portal/internal/config"
	"github.com/ankur-foundation/ngo-portal/internal/database"
	"github.com/ankur-foundation/ngo-portal/internal/handler"
	"github.com/ankur-foundation/ngo-portal/internal/metrics"
	"github.com/ankur-foundation/ngo-portal/internal/middleware"
	"github.com/ankur-foundation/ngo-portal/internal/queue"
	"github.com/ankur-foundation/ngo-portal/internal/repository"
	"github.com/ankur-foundation/ngo-portal/internal/router"
	"github.com/ankur-foundation/ngo-portal/internal/service"
	"github.com/ankur-foundation/ngo-portal/internal/session"
	"github.com/ankur-foundation/ngo-portal/internal/utils"
)

// stores is the set of repositories the handlers run against.
type stores struct {
	users        handler.UserStore
	committees   handler.CommitteeStore
	accounts     handler.AccountStore
	transactions handler.TransactionStore
	auditLogs    handler.AuditLogStore
	db           *sql.DB
}

func openStores(cfg config.Config) (stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		m := repository.NewMemory()
		return stores{
			users:        m.Users(),
			committees:   m.Committees(),
			accounts:     m.Accounts(),
			transactions: m.Transactions(),
			auditLogs:    m.AuditLogs(),
		}, nil
	}
	db, err := database.Open(cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:        repository.NewUserRepo(db),
		committees:   repository.NewCommitteeRepo(db),
		accounts:     repository.NewAccountRepo(db),
		transactions: repository.NewTransactionRepo(db),
		auditLogs:    repository.NewAuditLogRepo(db),
		db:           db,
	}, nil
}

func logLevel(s string) glog.Lvl {
	switch s {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error":
		return glog.ERROR
	}
	return glog.INFO
}

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	st, err := openStores(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if st.db != nil {
		defer st.db.Close()
	}

	tokens, err := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, utils.WithIssuer(cfg.JWTIssuer))
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	m := metrics.New()
	carrier := session.New(cfg.IsProduction(), cfg.TokenTTL)

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Printf("redis unavailable: response cache off, rate limiting in-process")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher service.AuditPublisher = service.DirectAuditWriter{Logs: st.auditLogs}
	var consumerDone chan struct{}
	if cfg.RabbitMQURL != "" {
		p, err := service.NewAMQPAuditPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("rabbitmq unavailable, writing audit events directly: %v", err)
		} else {
			defer p.Close()
			publisher = p
			consumerDone = make(chan struct{})
		}
	}
	auditor := &handler.Auditor{Publisher: publisher, Metrics: m}

	deps := router.Deps{
		Auth: &handler.AuthHandler{
			Users:   st.users,
			Hasher:  utils.NewHasher(cfg.BcryptCost),
			Tokens:  tokens,
			Carrier: carrier,
			Audit:   auditor,
			Metrics: m,
		},
		Users:        &handler.UserHandler{Users: st.users, Audit: auditor},
		Committees:   &handler.CommitteeHandler{Committees: st.committees, Audit: auditor},
		Accounts:     &handler.AccountHandler{Accounts: st.accounts, Audit: auditor},
		Transactions: &handler.TransactionHandler{Transactions: st.transactions, Audit: auditor},
		AuditLogs:    &handler.AuditLogHandler{Logs: st.auditLogs},
		Guard: &middleware.Guard{
			Tokens:     carrier,
			Verifier:   tokens,
			Users:      st.users,
			RoleSource: cfg.RoleSource,
			Metrics:    m,
		},
		Limiter: middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, m),
		Cache:   middleware.NewResponseCache(config.LoadCacheConfig(), rdb),
		Metrics: m,

		TrustedProxies: cfg.TrustedProxies,
	}
	if st.db != nil {
		deps.DB = st.db
	}

	e := router.New(deps)
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	if l, ok := e.Logger.(*glog.Logger); ok {
		l.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)
	}

	if consumerDone != nil {
		go func() {
			defer close(consumerDone)
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitMQURL, st.auditLogs, e.Logger); err != nil && !errors.Is(err, context.Canceled) {
				e.Logger.Errorf("audit consumer stopped: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		e.Logger.Infof("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Errorf("shutdown: %v", err)
	}
	if consumerDone != nil {
		<-consumerDone
	}
}
