package kvstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

// ParamStore reads the external collaborators' keyed records: bot
// parameters, trend data, funding-rate adjustments, and the process-wide
// flags of spec §6. The Quoting Engine and Hedge Executor are read-only
// consumers; nothing in this package writes these keys except the two
// flag setters (SetServerOverloadPause, SetOnlyExit) the Hedge Executor
// is explicitly granted below.
type ParamStore struct {
	store Store
}

func NewParamStore(store Store) *ParamStore {
	return &ParamStore{store: store}
}

func botParamsKey(base string) string { return "bot_params_" + base }

// BotParams reads `bot_params_<BASE>`.
func (p *ParamStore) BotParams(ctx context.Context, base string) (domain.BotParams, bool, error) {
	b, ok, err := p.store.Get(ctx, botParamsKey(base))
	if err != nil || !ok {
		return domain.BotParams{}, ok, err
	}
	var params domain.BotParams
	if err := json.Unmarshal(b, &params); err != nil {
		return domain.BotParams{}, false, err
	}
	return params, true, nil
}

// TrendData reads the `<BASE/USDT>` field of the `trend_data` hash.
func (p *ParamStore) TrendData(ctx context.Context, base string) (domain.TrendData, bool, error) {
	b, ok, err := p.store.HGet(ctx, "trend_data", base+"/USDT")
	if err != nil || !ok {
		return domain.TrendData{}, ok, err
	}
	var td domain.TrendData
	if err := json.Unmarshal(b, &td); err != nil {
		return domain.TrendData{}, false, err
	}
	return td, true, nil
}

// FundingAdjustment reads `funding_rates:<BASE>`. Per spec §6, within
// the first 5 minutes of a 4-hour UTC boundary the adjustment is
// treated as zero regardless of what is stored (funding has just paid).
func (p *ParamStore) FundingAdjustment(ctx context.Context, base string, now time.Time) (float64, error) {
	if withinFundingGrace(now) {
		return 0, nil
	}
	b, ok, err := p.store.Get(ctx, "funding_rates:"+base)
	if err != nil || !ok {
		return 0, err
	}
	var payload struct {
		FrAdjustmentFactor float64 `json:"fr_adjustment_factor"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return 0, err
	}
	return payload.FrAdjustmentFactor, nil
}

func withinFundingGrace(now time.Time) bool {
	now = now.UTC()
	minutesIntoBlock := (now.Hour()%4)*60 + now.Minute()
	return minutesIntoBlock < 5
}

// StopBot reads the `stop_bot` flag ("true"/"false" string per spec §6).
func (p *ParamStore) StopBot(ctx context.Context) (bool, error) {
	b, ok, err := p.store.Get(ctx, "stop_bot")
	if err != nil || !ok {
		return false, err
	}
	return string(b) == "true", nil
}

// ServerOverloadPause reports whether the presence-with-TTL flag is set.
func (p *ParamStore) ServerOverloadPause(ctx context.Context) (bool, error) {
	_, ok, err := p.store.Get(ctx, "server_overload_pause")
	return ok, err
}

// SetServerOverloadPause is called by the Hedge Executor on
// server_overloaded during hedge retry (spec §4.5 retry policy); the
// flag auto-clears after its TTL.
func (p *ParamStore) SetServerOverloadPause(ctx context.Context, ttl time.Duration) error {
	return p.store.Set(ctx, "server_overload_pause", []byte("1"), ttl)
}

// OnlyExit reads the numeric `only_exit` flag (0/1 per spec §6).
func (p *ParamStore) OnlyExit(ctx context.Context) (bool, error) {
	b, ok, err := p.store.Get(ctx, "only_exit")
	if err != nil || !ok {
		return true, err // absent means unrestricted: only_exit defaults open
	}
	v, err := strconv.Atoi(string(b))
	if err != nil {
		return true, nil
	}
	return v != 0, nil
}

// SetOnlyExit is called by the Hedge Executor when a hedge fails on
// margin_insufficient (spec §4.5 "Margin-insufficient policy").
func (p *ParamStore) SetOnlyExit(ctx context.Context, allowNewInventory bool) error {
	v := "1"
	if !allowNewInventory {
		v = "0"
	}
	return p.store.Set(ctx, "only_exit", []byte(v), 0)
}
