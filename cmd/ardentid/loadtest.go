package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/ardentid"
	"github.com/MrEthical07/ardentid/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// codeSink keeps the last code mailed to each address.
type codeSink struct {
	codes sync.Map
}

func (s *codeSink) Send(_ context.Context, to, _ string, placeholders map[string]string) error {
	s.codes.Store(to, placeholders["Otp"])
	return nil
}

func (s *codeSink) code(email string) string {
	v, _ := s.codes.Load(email)
	code, _ := v.(string)
	return code
}

type loadtestFlags struct {
	users       int
	concurrency int
	redisAddr   string
	purpose     string
}

func newLoadtestCmd() *cobra.Command {
	f := loadtestFlags{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure OTP issue and verify throughput against Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.users <= 0 || f.concurrency <= 0 {
				return fmt.Errorf("users and concurrency must be > 0")
			}
			purpose, err := parsePurposeFlag(f.purpose)
			if err != nil {
				return err
			}
			return loadtest(cmd.Context(), f, purpose, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&f.users, "users", 10000, "number of users to seed")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().StringVar(&f.redisAddr, "redis-addr", envOr("ARDENTID_REDIS_ADDR", ""), "redis address; embedded redis when empty")
	cmd.Flags().StringVar(&f.purpose, "purpose", "PasswordReset", "OTP purpose to exercise")
	return cmd
}

func loadtest(ctx context.Context, f loadtestFlags, purpose ardentid.OTPPurpose, out io.Writer) error {
	addr := f.redisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	cfg := ardentid.DefaultConfig()
	cfg.Password = ardentid.PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1}
	cfg.JWT.Secret = []byte("loadtest-only-signing-key-000000")
	cfg.Cache.RedisPrefix = "aotp-loadtest"

	users := memory.New()
	sink := &codeSink{}
	engine, err := ardentid.New().
		WithConfig(cfg).
		WithUserStore(users).
		WithMailer(sink).
		WithRedis(rdb).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	hash, err := engine.HashPassword("Loadtest1!")
	if err != nil {
		return err
	}
	emails := make([]string, f.users)
	fmt.Fprintf(out, "seeding %d users...\n", f.users)
	startSeed := time.Now()
	for i := range emails {
		emails[i] = fmt.Sprintf("user-%d@loadtest.invalid", i)
		if _, err := users.Insert(ctx, ardentid.UserRecord{
			Email:        emails[i],
			PasswordHash: hash,
			GivenName:    "Load",
		}); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	issue := runPhase(ctx, len(emails), f.concurrency, func(ctx context.Context, i int) error {
		_, err := engine.GenerateOTP(ctx, emails[i], purpose)
		return err
	})
	verify := runPhase(ctx, len(emails), f.concurrency, func(ctx context.Context, i int) error {
		ok, err := engine.VerifyOTP(ctx, emails[i], purpose, sink.code(emails[i]))
		if err == nil && !ok {
			return fmt.Errorf("code rejected for %s", emails[i])
		}
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "issue", issue)
	printStats(out, "verify", verify)
	return nil
}

func parsePurposeFlag(s string) (ardentid.OTPPurpose, error) {
	p, err := ardentid.ParsePurpose(s)
	if err != nil {
		return 0, fmt.Errorf("--purpose %q: %w", s, err)
	}
	return p, nil
}

// runPhase calls op once for each index in [0, n). Failures are counted, not
// returned, so one bad operation does not stop the phase.
func runPhase(ctx context.Context, n, concurrency int, op func(context.Context, int) error) phaseStats {
	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, n)
		mu        sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= n || gctx.Err() != nil {
					return nil
				}
				t0 := time.Now()
				err := op(gctx, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	_ = g.Wait()
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
		return phaseStats{total: total, failures: failures}
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
