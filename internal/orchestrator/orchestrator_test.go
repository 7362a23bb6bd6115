package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/harrier/internal/config"
	"github.com/aristath/harrier/internal/domain"
	"github.com/aristath/harrier/internal/planner"
	"github.com/aristath/harrier/internal/registry"
)

type fakeChain struct {
	mu sync.Mutex

	signing      bool
	simulateErr  error
	submitErr    error
	confirmOK    bool
	confirmErr   error
	simulated    []domain.StrikeRequest
	submitted    []domain.StrikeRequest
	confirmCalls int
}

func (f *fakeChain) GetBalance(ctx context.Context) (*big.Int, error) { return big.NewInt(0), nil }
func (f *fakeChain) GetFeeData(ctx context.Context) (*domain.FeeData, error) {
	return &domain.FeeData{BaseFee: big.NewInt(1)}, nil
}

func (f *fakeChain) Simulate(ctx context.Context, req domain.StrikeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulated = append(f.simulated, req)
	return f.simulateErr
}

func (f *fakeChain) Submit(ctx context.Context, req domain.StrikeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return "0xabc", nil
}

func (f *fakeChain) AwaitConfirmation(ctx context.Context, handle string, _ uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls++
	return f.confirmOK, f.confirmErr
}

func (f *fakeChain) CanSign() bool { return f.signing }

type fakePlanner struct {
	plan *domain.StrikePlan
}

func (f *fakePlanner) Plan(ctx context.Context, _ domain.ChainClient, _ config.NetworkConfig) *domain.StrikePlan {
	return f.plan
}

type fakeTrust struct {
	mu      sync.Mutex
	scores  map[string]float64
	updates []struct {
		source  string
		success bool
	}
}

func (f *fakeTrust) Get(source string) float64 {
	if s, ok := f.scores[source]; ok {
		return s
	}
	return 0.5
}

func (f *fakeTrust) Update(source string, success bool) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, struct {
		source  string
		success bool
	}{source, success})
	return 0.5
}

func (f *fakeTrust) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func validPlan() *domain.StrikePlan {
	return &domain.StrikePlan{
		LoanAmount:    big.NewInt(10_000_000),
		PremiumAmount: big.NewInt(9000),
		FeeRate:       big.NewInt(15),
		PriorityFee:   big.NewInt(3),
	}
}

func newSession(chain *fakeChain) *registry.Session {
	return &registry.Session{
		Config: config.NetworkConfig{Name: "testnet", ChainID: 1},
		Chain:  chain,
	}
}

func newTestOrchestrator(p StrikePlanner, trust TrustLedger) *Orchestrator {
	return New(p, trust, zerolog.Nop())
}

func TestAttemptSkipsNilAndReadOnlySessions(t *testing.T) {
	chain := &fakeChain{signing: false}
	trust := &fakeTrust{}
	o := newTestOrchestrator(&fakePlanner{plan: validPlan()}, trust)

	o.Attempt(context.Background(), nil, "ETH", "news")
	o.Attempt(context.Background(), newSession(chain), "ETH", "news")
	o.WaitInFlight()

	assert.Empty(t, chain.simulated)
	assert.Zero(t, trust.updateCount())
}

func TestAttemptSkipsWithoutPlan(t *testing.T) {
	chain := &fakeChain{signing: true}
	trust := &fakeTrust{scores: map[string]float64{"news": 0.9}}
	o := newTestOrchestrator(&fakePlanner{plan: nil}, trust)

	o.Attempt(context.Background(), newSession(chain), "ETH", "news")
	o.WaitInFlight()

	assert.Empty(t, chain.simulated)
	assert.Zero(t, trust.updateCount())
}

func TestTrustGate(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		executes bool
	}{
		{"well below gate", 0.2, false},
		{"exactly at gate is rejected", 0.4, false},
		{"just above gate", 0.41, true},
		{"unseen source default passes", 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &fakeChain{signing: true, confirmOK: true}
			trust := &fakeTrust{scores: map[string]float64{"src": tt.score}}
			o := newTestOrchestrator(&fakePlanner{plan: validPlan()}, trust)

			o.Attempt(context.Background(), newSession(chain), "ETH", "src")
			o.WaitInFlight()

			if tt.executes {
				assert.NotEmpty(t, chain.simulated, "expected strike past the gate")
			} else {
				assert.Empty(t, chain.simulated, "untrusted source must never trigger execution")
			}
		})
	}
}

func TestSimulationFailureSkipsLearning(t *testing.T) {
	chain := &fakeChain{signing: true, simulateErr: errors.New("execution reverted")}
	trust := &fakeTrust{scores: map[string]float64{"news": 0.9}}
	o := newTestOrchestrator(&fakePlanner{plan: validPlan()}, trust)

	o.Attempt(context.Background(), newSession(chain), "ETH", "news")
	o.WaitInFlight()

	assert.Empty(t, chain.submitted, "failed simulation must not submit")
	assert.Zero(t, trust.updateCount(), "nothing was submitted, nothing to score")
}

func TestSubmissionFailuresSkipLearning(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"insufficient funds race", errors.New("insufficient funds for gas * price + value")},
		{"other submission failure", errors.New("nonce too low")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &fakeChain{signing: true, submitErr: tt.err}
			trust := &fakeTrust{scores: map[string]float64{"news": 0.9}}
			o := newTestOrchestrator(&fakePlanner{plan: validPlan()}, trust)

			o.Attempt(context.Background(), newSession(chain), "ETH", "news")
			o.WaitInFlight()

			assert.Zero(t, trust.updateCount())
		})
	}
}

func TestConfirmedStrikeReportsSuccess(t *testing.T) {
	chain := &fakeChain{signing: true, confirmOK: true}
	trust := &fakeTrust{scores: map[string]float64{"news": 0.9}}
	o := newTestOrchestrator(&fakePlanner{plan: validPlan()}, trust)

	o.Attempt(context.Background(), newSession(chain), "ETH", "news")
	o.WaitInFlight()

	require.Equal(t, 1, trust.updateCount())
	assert.Equal(t, "news", trust.updates[0].source)
	assert.True(t, trust.updates[0].success)
}

func TestRevertedStrikeReportsFailure(t *testing.T) {
	chain := &fakeChain{signing: true, confirmOK: false}
	trust := &fakeTrust{scores: map[string]float64{"news": 0.9}}
	o := newTestOrchestrator(&fakePlanner{plan: validPlan()}, trust)

	o.Attempt(context.Background(), newSession(chain), "ETH", "news")
	o.WaitInFlight()

	require.Equal(t, 1, trust.updateCount())
	assert.False(t, trust.updates[0].success)
}

func TestConfirmationFailureCountsAsFailedOutcome(t *testing.T) {
	chain := &fakeChain{signing: true, confirmErr: errors.New("context deadline exceeded")}
	trust := &fakeTrust{scores: map[string]float64{"news": 0.9}}
	o := newTestOrchestrator(&fakePlanner{plan: validPlan()}, trust)

	o.Attempt(context.Background(), newSession(chain), "ETH", "news")
	o.WaitInFlight()

	require.Equal(t, 1, trust.updateCount())
	assert.False(t, trust.updates[0].success,
		"submitted-but-unconfirmed must produce a negative trust update")
}

func TestBuildRequest(t *testing.T) {
	plan := validPlan()

	req := buildRequest(plan, "ARB")
	assert.Equal(t, "WETH->ARB->WETH", req.Path)
	assert.Equal(t, plan.LoanAmount, req.LoanAmount)
	assert.Equal(t, plan.PremiumAmount, req.Value)
	assert.Equal(t, planner.GasBudget, req.GasLimit)
	assert.Equal(t, plan.FeeRate, req.MaxFeePerGas)
	assert.Equal(t, plan.PriorityFee, req.MaxPriorityFee)

	// Baseline attempts carry no ticker and fall back to the default pair.
	fallback := buildRequest(plan, "")
	assert.Equal(t, "WETH->USDC->WETH", fallback.Path)
}
