package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/config"
	"github.com/sells-group/salestax/internal/model"
	"github.com/sells-group/salestax/internal/schedule"
	"github.com/sells-group/salestax/internal/store"
	"github.com/sells-group/salestax/internal/tax"
	"github.com/sells-group/salestax/pkg/geocode"
)

func initStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	switch c.Driver {
	case "sqlite":
		dsn := c.DatabaseURL
		if dsn == "" {
			dsn = "salestax.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, c.DatabaseURL, &store.PoolConfig{
			MaxConns: c.MaxConns,
			MinConns: c.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
}

// openStore opens the configured store and makes sure its tables exist.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initReverser(c config.GeocodeConfig) geocode.Reverser {
	if !c.Enabled {
		return nil
	}
	return geocode.NewReverser(
		geocode.WithBaseURL(c.BaseURL),
		geocode.WithUserAgent(c.UserAgent),
		geocode.WithRateLimit(c.RateLimit),
		geocode.WithTimeout(time.Duration(c.TimeoutSecs)*time.Second),
	)
}

// loadSchedule reads the schedule from path when set, otherwise from st.
func loadSchedule(ctx context.Context, st store.Store, path string, policy model.Policy) (*schedule.Schedule, error) {
	var (
		records []model.ScheduleRecord
		err     error
	)
	if path != "" {
		records, err = readScheduleFile(path)
	} else if st != nil {
		records, err = st.LoadSchedule(ctx)
	} else {
		return nil, eris.New("no schedule source: set schedule.path or configure a store")
	}
	if err != nil {
		return nil, eris.Wrap(err, "load schedule")
	}

	s := schedule.New(policy, records)
	if _, ok := s.Fallback(); !ok {
		zap.L().Warn("schedule has no no-local fallback record; unmatched places use the default rate",
			zap.Int("records", s.Len()),
			zap.String("fallback", policy.NoLocalName),
		)
	}
	return s, nil
}

func readScheduleFile(path string) ([]model.ScheduleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open schedule file")
	}
	defer f.Close() //nolint:errcheck
	return schedule.ReadCSV(f)
}

// reloadSchedule rebuilds the schedule and swaps it in. The previous snapshot
// stays published when the rebuild fails.
func reloadSchedule(ctx context.Context, st store.Store, path string, policy model.Policy, holder *schedule.Holder) error {
	s, err := loadSchedule(ctx, st, path, policy)
	if err != nil {
		return err
	}
	prev := holder.Swap(s)

	fields := []zap.Field{zap.Int("records", s.Len())}
	if prev != nil {
		fields = append(fields, zap.Int("previous_records", prev.Len()))
	}
	zap.L().Info("schedule loaded", fields...)
	return nil
}

// quoteEnv bundles what the quoting commands need.
type quoteEnv struct {
	Store      store.Store
	Holder     *schedule.Holder
	Calculator *tax.Calculator
	Policy     model.Policy
}

func (e *quoteEnv) Close() {
	if e.Store != nil {
		e.Store.Close() //nolint:errcheck
	}
}

// initQuoteEnv loads policy, aliases and the schedule. withStore opens the
// store even when the schedule comes from a file.
func initQuoteEnv(ctx context.Context, withStore bool) (*quoteEnv, error) {
	policy, err := cfg.Schedule.Policy()
	if err != nil {
		return nil, err
	}
	aliases, err := schedule.LoadAliasesFile(cfg.Lookup.AliasesFile)
	if err != nil {
		return nil, eris.Wrap(err, "load aliases")
	}

	env := &quoteEnv{Policy: policy}
	if withStore || cfg.Schedule.Path == "" {
		env.Store, err = openStore(ctx)
		if err != nil {
			return nil, err
		}
	}

	env.Holder = schedule.NewHolder(nil)
	if err := reloadSchedule(ctx, env.Store, cfg.Schedule.Path, policy, env.Holder); err != nil {
		env.Close()
		return nil, err
	}
	env.Calculator = tax.NewCalculator(env.Holder, aliases, initReverser(cfg.Geocode), policy)
	return env, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
