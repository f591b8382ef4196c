/*
fuzzy.go - Resolving a spoken category to a registered one

PURPOSE:
  Users name their own "other" categories ("廃品", "生ごみ", ...). When a
  request does not carry a recognised slot id, the spoken text is scored
  against every named "other" category by an external comparator and the
  best candidate is chosen by a fixed decision table.

DECISION TABLE (s = best score):
  no named "other" category   -> NotRegistered, comparator not called
  s >= 0.7                    -> Confident
  0.5 <= s < 0.7              -> Confirm (caller asks "<name> ですか？")
  s < 0.5                     -> NotRegistered, raw utterance echoed
  comparator error            -> *ComparatorError, no fallback

  Ties go to the LAST candidate: the running maximum is replaced on >=.

SEE ALSO:
  - group.go: GroupByCategory
  - compare/client.go: HTTP Comparator
*/
package trash

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/trash-schedule/generic"
)

var (
	ConfidentThreshold = decimal.RequireFromString("0.7")
	ConfirmThreshold   = decimal.RequireFromString("0.5")
)

// CompareResult is one comparator score, parallel to the candidates.
type CompareResult struct {
	Match string          `json:"match"`
	Score decimal.Decimal `json:"score"`
}

// Comparator scores an utterance against candidate names. It must return
// exactly one result per candidate, in order.
type Comparator interface {
	Compare(ctx context.Context, utterance string, candidates []string) ([]CompareResult, error)
}

// Observer receives resolution telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveOutcome(outcome Outcome)
	ObserveComparator(elapsed time.Duration, err error)
}

// Outcome is the terminal state of a resolution.
type Outcome string

const (
	OutcomeSlotMatch     Outcome = "slot_match"
	OutcomeConfident     Outcome = "confident"
	OutcomeConfirm       Outcome = "confirm"
	OutcomeNotRegistered Outcome = "not_registered"
)

// Resolution is the answer to "when can I put out X".
type Resolution struct {
	Outcome   Outcome
	Utterance string
	// Key is the resolved slot id or candidate name, empty when not registered.
	Key   string
	Score decimal.Decimal
	// ConfirmName is set for OutcomeConfirm.
	ConfirmName string
	Groups      map[string]OccurrenceGroup
}

// Resolver implements the resolution policy.
type Resolver struct {
	Comparator Comparator
	Logger     *zap.Logger
	Metrics    Observer
}

func NewResolver(cmp Comparator, logger *zap.Logger, metrics Observer) *Resolver {
	return &Resolver{Comparator: cmp, Logger: logger, Metrics: metrics}
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Resolver) finish(res *Resolution) *Resolution {
	if r.Metrics != nil {
		r.Metrics.ObserveOutcome(res.Outcome)
	}
	return res
}

// Resolve answers from the slot id when the user has that category
// registered, and falls back to comparing the free text otherwise.
func (r *Resolver) Resolve(ctx context.Context, slotID, utterance string, categories []Category, today generic.TimePoint) (*Resolution, error) {
	if slotID != "" {
		groups := GroupByCategory(categories, slotID, today)
		if len(groups) > 0 {
			return r.finish(&Resolution{
				Outcome:   OutcomeSlotMatch,
				Utterance: utterance,
				Key:       slotID,
				Groups:    groups,
			}), nil
		}
		r.logger().Debug("slot not registered, comparing free text",
			zap.String("slot", slotID), zap.String("utterance", utterance))
	}
	return r.ResolveFreeText(ctx, utterance, categories, today)
}

// ResolveFreeText runs the decision table over the named "other"
// categories.
func (r *Resolver) ResolveFreeText(ctx context.Context, utterance string, categories []Category, today generic.TimePoint) (*Resolution, error) {
	var others []Category
	for _, c := range categories {
		if c.IsOther() && c.DisplayName != "" {
			others = append(others, c)
		}
	}
	if len(others) == 0 {
		return r.finish(notRegistered(utterance)), nil
	}

	candidates := make([]string, len(others))
	for i, c := range others {
		candidates[i] = c.DisplayName
	}

	results, err := r.compare(ctx, utterance, candidates)
	if err != nil {
		return nil, err
	}

	best := 0
	for i := range results {
		if results[i].Score.GreaterThanOrEqual(results[best].Score) {
			best = i
		}
	}
	score := results[best].Score
	name := results[best].Match
	if name == "" {
		name = candidates[best]
	}

	r.logger().Info("compared free text",
		zap.String("utterance", utterance),
		zap.Strings("candidates", candidates),
		zap.String("best", name),
		zap.String("score", score.String()))

	if score.LessThan(ConfirmThreshold) {
		res := notRegistered(utterance)
		res.Score = score
		return r.finish(res), nil
	}

	res := &Resolution{
		Outcome:   OutcomeConfident,
		Utterance: utterance,
		Key:       others[best].DisplayName,
		Score:     score,
		Groups:    GroupByCategory([]Category{others[best]}, CodeOther, today),
	}
	if score.LessThan(ConfidentThreshold) {
		res.Outcome = OutcomeConfirm
		res.ConfirmName = name
	}
	return r.finish(res), nil
}

func (r *Resolver) compare(ctx context.Context, utterance string, candidates []string) ([]CompareResult, error) {
	if r.Comparator == nil {
		return nil, &ComparatorError{Candidates: candidates, Err: fmt.Errorf("no comparator configured")}
	}

	start := time.Now()
	results, err := r.Comparator.Compare(ctx, utterance, candidates)
	if err == nil && len(results) != len(candidates) {
		err = fmt.Errorf("got %d results for %d candidates", len(results), len(candidates))
	}
	if r.Metrics != nil {
		r.Metrics.ObserveComparator(time.Since(start), err)
	}
	if err != nil {
		r.logger().Error("comparator failed",
			zap.String("utterance", utterance),
			zap.Strings("candidates", candidates),
			zap.Error(err))
		return nil, &ComparatorError{Candidates: candidates, Err: err}
	}
	return results, nil
}

func notRegistered(utterance string) *Resolution {
	return &Resolution{
		Outcome:   OutcomeNotRegistered,
		Utterance: utterance,
		Groups:    map[string]OccurrenceGroup{},
	}
}
