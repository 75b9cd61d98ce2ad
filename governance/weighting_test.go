package governance

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-governance-backend/models"
)

func votes(pairs ...interface{}) []models.Vote {
	out := []models.Vote{}
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.Vote{
			ID:     uint64(i/2 + 1),
			UserID: uint64(pairs[i].(int)),
			Choice: pairs[i+1].(models.VoteChoice),
		})
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertWeights(t *testing.T, w Weights, yes, no, abstain, total string) {
	t.Helper()
	assert.True(t, w.Yes.Equal(dec(yes)), "yes = %s, want %s", w.Yes, yes)
	assert.True(t, w.No.Equal(dec(no)), "no = %s, want %s", w.No, no)
	assert.True(t, w.Abstain.Equal(dec(abstain)), "abstain = %s, want %s", w.Abstain, abstain)
	assert.True(t, w.Total.Equal(dec(total)), "total = %s, want %s", w.Total, total)
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		method  models.VotingMethod
		version string
	}{
		{models.SimpleMajority, "simple-v1"},
		{models.PerSeat, "seat-v1"},
		{models.WeightedArea, "area-v1"},
		{models.Consensus, "consensus-v1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			p, err := NewPolicy(tt.method, newMemDirectory())
			require.NoError(t, err)
			assert.Equal(t, tt.method, p.Method())
			assert.Equal(t, tt.version, p.Version())
		})
	}

	_, err := NewPolicy("RankedChoice", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSimpleMajority(t *testing.T) {
	ctx := context.Background()
	p, _ := NewPolicy(models.SimpleMajority, nil)
	prop := proposal(models.SimpleMajority, nil)

	w, err := p.Weigh(ctx, votes(1, models.ChoiceYes, 2, models.ChoiceYes, 3, models.ChoiceNo, 4, models.ChoiceAbstain), prop)
	require.NoError(t, err)
	assertWeights(t, w, "2", "1", "1", "4")
	assert.True(t, p.Decide(w))

	tie, err := p.Weigh(ctx, votes(1, models.ChoiceYes, 2, models.ChoiceNo), prop)
	require.NoError(t, err)
	assert.False(t, p.Decide(tie), "a tie does not pass")

	empty, err := p.Weigh(ctx, nil, prop)
	require.NoError(t, err)
	assertWeights(t, empty, "0", "0", "0", "0")
	assert.False(t, p.Decide(empty))
}

func TestPerSeat(t *testing.T) {
	ctx := context.Background()
	dir := newMemDirectory()
	dir.own(1, building, 50, 60, 70) // three seats
	dir.own(2, building, 80)
	dir.own(2, 2, 90) // other building, out of scope
	dir.own(3, 2, 40) // nothing in scope
	p, _ := NewPolicy(models.PerSeat, dir)
	prop := proposal(models.PerSeat, &building)

	w, err := p.Weigh(ctx, votes(1, models.ChoiceNo, 2, models.ChoiceYes, 3, models.ChoiceYes), prop)
	require.NoError(t, err)
	// user 3 owns nothing here and still counts as one seat
	assertWeights(t, w, "2", "3", "0", "5")
	assert.False(t, p.Decide(w))

	global := proposal(models.PerSeat, nil)
	w, err = p.Weigh(ctx, votes(2, models.ChoiceYes, 1, models.ChoiceNo), global)
	require.NoError(t, err)
	assertWeights(t, w, "2", "3", "0", "5")
}

func TestPerSeatDeduplicatesApartments(t *testing.T) {
	dir := newMemDirectory()
	size := 50.0
	apt := models.OwnedApartment{ApartmentID: 9, BuildingID: building, SizeSqM: &size}
	dir.apartments[1] = []models.OwnedApartment{apt, apt}

	for _, method := range []models.VotingMethod{models.PerSeat, models.WeightedArea} {
		p, _ := NewPolicy(method, dir)
		w, err := p.Weigh(context.Background(), votes(1, models.ChoiceYes), proposal(method, &building))
		require.NoError(t, err)
		if method == models.PerSeat {
			assertWeights(t, w, "1", "0", "0", "1")
		} else {
			assertWeights(t, w, "50", "0", "0", "50")
		}
	}
}

func TestWeightedArea(t *testing.T) {
	ctx := context.Background()
	dir := newMemDirectory()
	dir.own(1, building, 80, 40.5)
	dir.own(2, building, 100)
	dir.own(3, building, -1) // size unknown
	p, _ := NewPolicy(models.WeightedArea, dir)
	prop := proposal(models.WeightedArea, &building)

	w, err := p.Weigh(ctx, votes(1, models.ChoiceYes, 2, models.ChoiceNo, 3, models.ChoiceYes, 4, models.ChoiceAbstain), prop)
	require.NoError(t, err)
	// user 3 has no recorded size and user 4 owns nothing: both weigh zero
	assertWeights(t, w, "120.5", "100", "0", "220.5")
	assert.True(t, p.Decide(w))
}

func TestConsensus(t *testing.T) {
	ctx := context.Background()
	p, _ := NewPolicy(models.Consensus, nil)
	prop := proposal(models.Consensus, nil)

	tests := []struct {
		name  string
		votes []models.Vote
		want  bool
	}{
		{"unanimous yes", votes(1, models.ChoiceYes, 2, models.ChoiceYes), true},
		{"yes with abstention", votes(1, models.ChoiceYes, 2, models.ChoiceAbstain), true},
		{"single no blocks", votes(1, models.ChoiceYes, 2, models.ChoiceYes, 3, models.ChoiceNo), false},
		{"only abstentions", votes(1, models.ChoiceAbstain, 2, models.ChoiceAbstain), false},
		{"no votes", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := p.Weigh(ctx, tt.votes, prop)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Decide(w))
		})
	}
}

func TestWeighIsDeterministic(t *testing.T) {
	ctx := context.Background()
	dir := newMemDirectory()
	dir.own(1, building, 33.3, 12.25)
	dir.own(2, building, 71.1)
	vs := votes(1, models.ChoiceYes, 2, models.ChoiceNo, 3, models.ChoiceAbstain)

	for _, method := range []models.VotingMethod{models.SimpleMajority, models.PerSeat, models.WeightedArea, models.Consensus} {
		t.Run(string(method), func(t *testing.T) {
			p, _ := NewPolicy(method, dir)
			prop := proposal(method, &building)
			first, err := p.Weigh(ctx, vs, prop)
			require.NoError(t, err)
			for i := 0; i < 5; i++ {
				again, err := p.Weigh(ctx, vs, prop)
				require.NoError(t, err)
				assert.Equal(t, first.Yes.String(), again.Yes.String())
				assert.Equal(t, first.No.String(), again.No.String())
				assert.Equal(t, first.Total.String(), again.Total.String())
				assert.Equal(t, p.Decide(first), p.Decide(again))
			}
			assert.True(t, first.Total.Equal(first.Yes.Add(first.No).Add(first.Abstain)))
		})
	}
}

func TestWeighFailures(t *testing.T) {
	ctx := context.Background()

	dir := newMemDirectory()
	dir.err = errors.New("ownership service down")
	for _, method := range []models.VotingMethod{models.PerSeat, models.WeightedArea} {
		p, _ := NewPolicy(method, dir)
		_, err := p.Weigh(ctx, votes(1, models.ChoiceYes), proposal(method, &building))
		assert.Error(t, err)
		assert.Equal(t, KindInternal, KindOf(err))
	}

	p, _ := NewPolicy(models.PerSeat, nil)
	_, err := p.Weigh(ctx, votes(1, models.ChoiceYes), proposal(models.PerSeat, nil))
	assert.Error(t, err, "ownership provider is required")

	simple, _ := NewPolicy(models.SimpleMajority, nil)
	_, err = simple.Weigh(ctx, []models.Vote{{ID: 1, UserID: 1, Choice: "Maybe"}}, proposal(models.SimpleMajority, nil))
	assert.Error(t, err)
}
