package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-funds-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-funds-ledger/internal/app/core/adapter/in/scheduler"
	memory_adapter "github.com/JoeShih716/go-funds-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-funds-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-funds-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-funds-ledger/pkg/auth"
	"github.com/JoeShih716/go-funds-ledger/pkg/logger"
	"github.com/JoeShih716/go-funds-ledger/pkg/metrics"
	"github.com/JoeShih716/go-funds-ledger/pkg/mysql"
	"github.com/JoeShih716/go-funds-ledger/pkg/password"
)

const (
	shutdownTimeout = 15 * time.Second

	// 閒置超過 limiterIdleTTL 的呼叫端 bucket 會被移除
	limiterCleanupInterval = time.Minute
	limiterIdleTTL         = 10 * time.Minute
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
	log.Info("server exited")
}

// stores 儲存層的組合
type stores struct {
	accounts usecase.AccountStore
	users    usecase.IdentityStore
	close    func() error
}

// openStores 依設定建立儲存層
func openStores(ctx context.Context, cfg Config, log logrus.FieldLogger) (*stores, error) {
	switch cfg.Store {
	case StoreMemory:
		store := memory_adapter.NewStore()
		log.Warn("using in-memory store, data is lost on restart")
		return &stores{accounts: store, users: store.Users(), close: func() error { return nil }}, nil
	case StoreMySQL:
		client, err := mysql.NewClient(ctx, cfg.MySQL, log)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		if err := client.Migrate(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("migrate mysql: %w", err)
		}
		log.Info("connected to MySQL and applied migrations")
		return &stores{
			accounts: mysql_adapter.NewAccountStore(client),
			users:    mysql_adapter.NewIdentityStore(client),
			close:    client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func run(cfg Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化儲存層
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.WithError(err).Warn("close store")
		}
	}()

	rate, err := cfg.Accrual.Rate()
	if err != nil {
		return err
	}

	// 3. 初始化 UseCase
	m := metrics.New()
	hasher := password.NewHasher(cfg.Auth.PasswordCost)
	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	locker := usecase.NewAccountLocker()

	coreUseCase := usecase.NewCoreUseCase(
		usecase.NewLedger(st.accounts, st.users, locker, log).WithObserver(m),
		usecase.NewAccrual(st.accounts, locker, rate, log).WithObserver(m),
		usecase.NewRegistration(st.users, hasher, log),
		usecase.NewContacts(st.users, log),
		usecase.NewDirectory(st.users),
		usecase.NewSessions(st.users, hasher, tokens, log),
	)

	// 4. 初始化 gRPC Adapter (Driving Adapter)
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
	}
	limiter := grpc_adapter.NewRateLimiter(cfg.GRPC.RatePerSecond, cfg.GRPC.Burst)
	limiter.StartCleanup(ctx, limiterCleanupInterval, limiterIdleTTL)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpc_adapter.Observe(m, log),
		grpc_adapter.Authenticate(tokens),
		limiter.Interceptor(),
	))
	grpc_adapter.RegisterLedgerServer(s, grpc_adapter.NewGrpcServer(coreUseCase))
	reflection.Register(s) // 方便用 grpcurl 測試

	// 5. Metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 6. Accrual 排程
	sched, err := scheduler.New(coreUseCase, cfg.Accrual.Period, log)
	if err != nil {
		return err
	}
	sched.Start()

	errCh := make(chan error, 2)
	go func() {
		log.WithField("addr", cfg.GRPC.Addr).Info("starting gRPC server")
		if err := s.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.WithField("addr", cfg.Metrics.Addr).Info("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics serve: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down server...")
	case runErr = <-errCh:
		log.WithError(runErr).Error("server failed, shutting down")
	}

	// Graceful Shutdown: 先停止接收請求，再等待 sweep 結束
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.GracefulStop()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("accrual sweep did not finish before shutdown")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics server shutdown")
	}
	return runErr
}
