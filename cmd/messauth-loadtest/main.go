// Command messauth-loadtest measures Authorize and UpdateProfile throughput
// against the Redis account store. Without -redis-addr (or REDIS_ADDR) it
// runs on miniredis.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/messline/messauth"
	"github.com/messline/messauth/account"
	"github.com/messline/messauth/notify"
	"github.com/messline/messauth/password"
	"github.com/messline/messauth/store/redisstore"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "Loadtest1"

func main() {
	var (
		accounts    = flag.Int("accounts", 2000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "account key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := redisstore.New(client, *prefix)

	cfg := messauth.DefaultConfig()
	cfg.Token.Secret = []byte("loadtest-secret-loadtest-secret-!")
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := messauth.New().
		WithConfig(cfg).
		WithStore(store).
		WithNotifier(notify.Func(func(context.Context, notify.Message) error { return nil })).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	ids, tokens, err := seed(ctx, store, engine, *accounts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorizeStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		_, err := engine.Authorize(ctx, tokens[r.Intn(len(tokens))])
		return err
	})
	updateStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, i int) error {
		id := ids[r.Intn(len(ids))]
		_, err := engine.UpdateProfile(ctx, id, messauth.ProfileUpdate{
			Phone: account.Some(fmt.Sprintf("+1 555 %07d", i)),
		})
		return err
	})

	fmt.Println("---- results ----")
	printStats("authorize", authorizeStats)
	printStats("update_profile", updateStats)
	snapshot := engine.MetricsSnapshot()
	fmt.Printf("authorize_success=%d profile_update=%d\n",
		snapshot.Counters[messauth.MetricAuthorizeSuccess],
		snapshot.Counters[messauth.MetricProfileUpdate],
	)
}

// seed writes verified accounts straight to the store and logs each one in.
func seed(ctx context.Context, store account.Store, engine *messauth.Engine, n int) ([]string, []string, error) {
	hasher, err := password.NewBcrypt(4)
	if err != nil {
		return nil, nil, err
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, n)
	tokens := make([]string, n)
	now := time.Now()
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("load-%d@example.com", i)
		acct := account.New(fmt.Sprintf("acct-%d", i), "Load Test", email, hash, account.RoleUser, "", now)
		acct.IsVerified = true
		if err := store.Create(ctx, acct); err != nil {
			return nil, nil, fmt.Errorf("create %s: %w", email, err)
		}
		session, err := engine.Login(ctx, email, loadPassword)
		if err != nil {
			return nil, nil, fmt.Errorf("login %s: %w", email, err)
		}
		ids[i] = acct.ID
		tokens[i] = session.Token
	}
	return ids, tokens, nil
}

func runPhase(ops, concurrency int, seedSalt int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedSalt))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
