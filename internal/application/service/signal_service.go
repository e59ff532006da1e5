package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"botty/internal/application/port"
	"botty/internal/domain/model"
	"botty/internal/infrastructure/throttle"
)

// SignalService asks an LLM for a trading decision per asset. All
// completions are funneled through one shared limiter so every agent
// obeys the same provider rate limit.
type SignalService struct {
	completer port.Completer
	limiter   *throttle.Limiter
	repo      port.Repository
}

func NewSignalService(completer port.Completer, limiter *throttle.Limiter, repo port.Repository) *SignalService {
	return &SignalService{completer: completer, limiter: limiter, repo: repo}
}

// Generate builds the prompt for one asset, runs it through the rate
// limiter, and parses the reply. Any failure, from transport errors to
// malformed JSON, degrades to a hold signal so one bad completion never
// stalls the trading loop.
func (s *SignalService) Generate(ctx context.Context, asset model.Asset, agent model.AgentConfig, snapshot model.Portfolio) model.TradingSignal {
	prompt := buildPrompt(asset, agent, snapshot)

	raw, err := s.limiter.Execute(ctx, func(taskCtx context.Context) (string, error) {
		return s.completer.Complete(taskCtx, agent.Model, prompt, true)
	})
	if err != nil {
		log.Warn().Err(err).Str("agent", agent.ID).Str("asset", asset.ID).Msg("completion failed, holding")
		return holdSignal(asset.ID, "completion failed")
	}

	sig, err := parseSignal(raw, asset, agent)
	if err != nil {
		log.Warn().Err(err).Str("agent", agent.ID).Str("asset", asset.ID).Msg("unparseable signal, holding")
		return holdSignal(asset.ID, "unparseable model response")
	}

	if s.repo != nil {
		payload, _ := json.Marshal(sig)
		if err := s.repo.InsertSignal(ctx, sig.Timestamp, asset.ID, sig.Confidence, string(payload)); err != nil {
			log.Error().Err(err).Str("asset", asset.ID).Msg("signal persistence failed")
		}
	}
	return sig
}

// parseSignal decodes and clamps one model reply. Unknown actions and
// out-of-range numbers are normalized rather than rejected.
func parseSignal(raw string, asset model.Asset, agent model.AgentConfig) (model.TradingSignal, error) {
	var sig model.TradingSignal
	if err := json.Unmarshal([]byte(raw), &sig); err != nil {
		return model.TradingSignal{}, err
	}

	switch sig.Action {
	case model.ActionBuy, model.ActionSell, model.ActionHold, model.ActionClose:
	default:
		sig.Action = model.ActionHold
	}
	switch sig.PositionType {
	case model.PositionLong, model.PositionShort:
	default:
		sig.PositionType = model.PositionLong
	}

	if sig.Confidence < 0 {
		sig.Confidence = 0
	}
	if sig.Confidence > 100 {
		sig.Confidence = 100
	}
	if sig.Leverage < 1 {
		sig.Leverage = 1
	}
	if agent.MaxLeverage >= 1 && sig.Leverage > agent.MaxLeverage {
		sig.Leverage = agent.MaxLeverage
	}
	if sig.SuggestedQuantity < 0 {
		sig.SuggestedQuantity = 0
	}

	sig.AssetID = asset.ID
	sig.Timestamp = time.Now().UnixMilli()
	return sig, nil
}

func holdSignal(assetID, reason string) model.TradingSignal {
	return model.TradingSignal{
		Action:       model.ActionHold,
		AssetID:      assetID,
		Confidence:   0,
		Reasoning:    reason,
		PositionType: model.PositionLong,
		Leverage:     1,
		Timestamp:    time.Now().UnixMilli(),
	}
}

// Consensus merges signals from several agents for the same asset. A
// non-hold action wins only with a strict majority of votes and an
// average confidence above 70 among the agents that voted for it;
// otherwise the asset holds.
func Consensus(signals []model.TradingSignal) model.TradingSignal {
	if len(signals) == 0 {
		return holdSignal("", "no signals")
	}

	votes := map[model.SignalAction][]model.TradingSignal{}
	for _, s := range signals {
		votes[s.Action] = append(votes[s.Action], s)
	}

	var winner model.SignalAction
	var backers []model.TradingSignal
	for action, group := range votes {
		if action == model.ActionHold {
			continue
		}
		if len(group) > len(backers) {
			winner = action
			backers = group
		}
	}

	if winner == "" || len(backers)*2 <= len(signals) {
		return holdSignal(signals[0].AssetID, "no majority")
	}

	var confSum, qtySum, levSum float64
	for _, s := range backers {
		confSum += s.Confidence
		qtySum += s.SuggestedQuantity
		levSum += s.Leverage
	}
	avgConf := confSum / float64(len(backers))
	if avgConf <= 70 {
		return holdSignal(signals[0].AssetID, "confidence below threshold")
	}

	out := backers[0]
	out.Confidence = avgConf
	out.SuggestedQuantity = qtySum / float64(len(backers))
	out.Leverage = levSum / float64(len(backers))
	out.Reasoning = "consensus of agents"
	out.Timestamp = time.Now().UnixMilli()
	return out
}
