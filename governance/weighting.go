package governance

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"property-governance-backend/models"
)

// Weights are the per-choice sums produced by a Policy. Total includes
// abstentions.
type Weights struct {
	Yes     decimal.Decimal
	No      decimal.Decimal
	Abstain decimal.Decimal
	Total   decimal.Decimal
}

// OwnershipProvider is the ownership part of Directory, read at tally time.
type OwnershipProvider interface {
	ApartmentsOwnedBy(ctx context.Context, userID uint64, buildingID *uint64) ([]models.OwnedApartment, error)
}

// Policy maps a frozen vote set to weights and decides the outcome. Weigh
// must be deterministic for a given vote set and ownership snapshot.
type Policy interface {
	Method() models.VotingMethod
	// Version tags the rule revision stored with every result.
	Version() string
	Weigh(ctx context.Context, votes []models.Vote, p *models.Proposal) (Weights, error)
	Decide(w Weights) bool
}

// NewPolicy returns the policy for method.
func NewPolicy(method models.VotingMethod, owners OwnershipProvider) (Policy, error) {
	switch method {
	case models.SimpleMajority:
		return simpleMajority{}, nil
	case models.PerSeat:
		return perSeat{owners: owners}, nil
	case models.WeightedArea:
		return weightedArea{owners: owners}, nil
	case models.Consensus:
		return consensus{}, nil
	default:
		return nil, ValidationError("unknown voting method %q", method)
	}
}

type weightFunc func(ctx context.Context, v models.Vote) (decimal.Decimal, error)

func accumulate(ctx context.Context, votes []models.Vote, weight weightFunc) (Weights, error) {
	w := Weights{
		Yes:     decimal.Zero,
		No:      decimal.Zero,
		Abstain: decimal.Zero,
		Total:   decimal.Zero,
	}
	for _, v := range votes {
		vw, err := weight(ctx, v)
		if err != nil {
			return Weights{}, err
		}
		switch v.Choice {
		case models.ChoiceYes:
			w.Yes = w.Yes.Add(vw)
		case models.ChoiceNo:
			w.No = w.No.Add(vw)
		case models.ChoiceAbstain:
			w.Abstain = w.Abstain.Add(vw)
		default:
			return Weights{}, errors.Errorf("vote %d has unknown choice %q", v.ID, v.Choice)
		}
		w.Total = w.Total.Add(vw)
	}
	return w, nil
}

func unitWeight(context.Context, models.Vote) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}

func majority(w Weights) bool {
	return w.Yes.GreaterThan(w.No)
}

// distinctOwned loads the apartments a voter owns within the proposal's scope,
// de-duplicated by apartment id.
func distinctOwned(ctx context.Context, owners OwnershipProvider, userID uint64, p *models.Proposal) ([]models.OwnedApartment, error) {
	if owners == nil {
		return nil, errors.New("ownership provider not configured")
	}
	apts, err := owners.ApartmentsOwnedBy(ctx, userID, p.BuildingID)
	if err != nil {
		return nil, errors.Wrapf(err, "ownership snapshot for user %d", userID)
	}
	seen := make(map[uint64]struct{}, len(apts))
	out := apts[:0:0]
	for _, a := range apts {
		if p.BuildingID != nil && a.BuildingID != *p.BuildingID {
			continue
		}
		if _, ok := seen[a.ApartmentID]; ok {
			continue
		}
		seen[a.ApartmentID] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

type simpleMajority struct{}

func (simpleMajority) Method() models.VotingMethod { return models.SimpleMajority }
func (simpleMajority) Version() string             { return "simple-v1" }
func (simpleMajority) Decide(w Weights) bool       { return majority(w) }

func (simpleMajority) Weigh(ctx context.Context, votes []models.Vote, _ *models.Proposal) (Weights, error) {
	return accumulate(ctx, votes, unitWeight)
}

// perSeat weighs a vote by the number of apartments the voter owns in scope.
// A voter without apartments still counts as one seat.
type perSeat struct {
	owners OwnershipProvider
}

func (perSeat) Method() models.VotingMethod { return models.PerSeat }
func (perSeat) Version() string             { return "seat-v1" }
func (perSeat) Decide(w Weights) bool       { return majority(w) }

func (s perSeat) Weigh(ctx context.Context, votes []models.Vote, p *models.Proposal) (Weights, error) {
	return accumulate(ctx, votes, func(ctx context.Context, v models.Vote) (decimal.Decimal, error) {
		apts, err := distinctOwned(ctx, s.owners, v.UserID, p)
		if err != nil {
			return decimal.Zero, err
		}
		if len(apts) == 0 {
			return decimal.NewFromInt(1), nil
		}
		return decimal.NewFromInt(int64(len(apts))), nil
	})
}

// weightedArea weighs a vote by the floor area the voter owns in scope.
// Apartments without a recorded size contribute nothing.
type weightedArea struct {
	owners OwnershipProvider
}

func (weightedArea) Method() models.VotingMethod { return models.WeightedArea }
func (weightedArea) Version() string             { return "area-v1" }
func (weightedArea) Decide(w Weights) bool       { return majority(w) }

func (a weightedArea) Weigh(ctx context.Context, votes []models.Vote, p *models.Proposal) (Weights, error) {
	return accumulate(ctx, votes, func(ctx context.Context, v models.Vote) (decimal.Decimal, error) {
		apts, err := distinctOwned(ctx, a.owners, v.UserID, p)
		if err != nil {
			return decimal.Zero, err
		}
		area := decimal.Zero
		for _, apt := range apts {
			if apt.SizeSqM != nil {
				area = area.Add(decimal.NewFromFloat(*apt.SizeSqM))
			}
		}
		return area, nil
	})
}

// consensus passes only with at least one Yes and no No at all.
type consensus struct{}

func (consensus) Method() models.VotingMethod { return models.Consensus }
func (consensus) Version() string             { return "consensus-v1" }

func (consensus) Weigh(ctx context.Context, votes []models.Vote, _ *models.Proposal) (Weights, error) {
	return accumulate(ctx, votes, unitWeight)
}

func (consensus) Decide(w Weights) bool {
	if w.No.IsPositive() {
		return false
	}
	return w.Yes.IsPositive()
}
