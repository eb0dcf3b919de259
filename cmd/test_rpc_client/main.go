package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpc_adapter "github.com/JoeShih716/go-funds-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-funds-ledger/pkg/grpc"
	"github.com/JoeShih716/go-funds-ledger/pkg/logger"
)

type tokenKey struct{}

// withToken 把登入後的 token 放進 ctx，交給 pool 的攔截器附加
func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

type user struct {
	id    int64
	token string
}

func main() {
	addr := flag.String("addr", "localhost:50051", "ledger gRPC address")
	users := flag.Int("users", 100, "number of users to register")
	total := flag.Int("transfers", 100000, "number of transfers to send")
	concurrency := flag.Int("concurrency", 200, "concurrent transfers")
	initial := flag.String("initial", "10000", "initial balance of each user")
	amount := flag.String("amount", "1.25", "amount of each transfer")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Format: "text"}, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *users < 2 {
		log.Fatal("need at least 2 users")
	}

	pool := grpc.NewPool(grpc.WithInterceptor(grpc.BearerToken(tokenFrom)))
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		log.WithError(err).Fatal("did not connect")
	}
	c := grpc_adapter.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	accounts, err := setup(ctx, c, *users, *initial)
	if err != nil {
		log.WithError(err).Fatal("setup failed")
	}
	log.WithField("users", len(accounts)).Info("users registered and logged in")

	stats := run(ctx, c, accounts, *total, *concurrency, *amount, log)
	log.WithFields(logrus.Fields{
		"ok":       stats.ok.Load(),
		"rejected": stats.rejected.Load(),
		"failed":   stats.failed.Load(),
		"elapsed":  stats.elapsed,
		"tps":      fmt.Sprintf("%.2f", float64(*total)/stats.elapsed.Seconds()),
	}).Info("load test finished")
}

// setup 註冊 n 個使用者並登入
func setup(ctx context.Context, c *grpc_adapter.Client, n int, initial string) ([]user, error) {
	run := uuid.NewString()[:8]
	out := make([]user, 0, n)
	for i := 0; i < n; i++ {
		username := fmt.Sprintf("load-%s-%d", run, i)
		password := uuid.NewString()
		req, err := structpb.NewStruct(map[string]any{
			"username":        username,
			"password":        password,
			"email":           username + "@load.test",
			"phone":           fmt.Sprintf("+1-%s-%06d", run, i),
			"full_name":       "Load " + username,
			"birth_date":      "1990-01-01",
			"initial_balance": initial,
		})
		if err != nil {
			return nil, err
		}
		resp, err := c.Register(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", username, err)
		}

		login, _ := structpb.NewStruct(map[string]any{"username": username, "password": password})
		tok, err := c.Login(ctx, login)
		if err != nil {
			return nil, fmt.Errorf("login %s: %w", username, err)
		}
		out = append(out, user{
			id:    int64(resp.Fields["user_id"].GetNumberValue()),
			token: tok.Fields["token"].GetStringValue(),
		})
	}
	return out, nil
}

type stats struct {
	ok, rejected, failed atomic.Int64
	elapsed              time.Duration
}

// run 以固定並發量送出隨機兩兩轉帳
func run(ctx context.Context, c *grpc_adapter.Client, accounts []user, total, concurrency int, amount string, log logrus.FieldLogger) *stats {
	s := &stats{}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < total; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			from := accounts[rand.IntN(len(accounts))]
			to := accounts[rand.IntN(len(accounts))]
			for to.id == from.id {
				to = accounts[rand.IntN(len(accounts))]
			}
			req, _ := structpb.NewStruct(map[string]any{"to_user_id": to.id, "amount": amount})

			_, err := c.Transfer(withToken(ctx, from.token), req)
			switch status.Code(err) {
			case codes.OK:
				s.ok.Add(1)
			case codes.FailedPrecondition:
				s.rejected.Add(1)
			default:
				if s.failed.Add(1)%1000 == 1 {
					log.WithError(err).WithField("idx", idx).Warn("transfer failed")
				}
			}
		}(i)
	}
	wg.Wait()
	s.elapsed = time.Since(start)
	return s
}
