// Package replay implements the interactive step-driven strategy driver: a
// bar-by-bar replay session accepting PLAY, PAUSE, STEP, BUY, SELL, FLATTEN,
// and END commands.
package replay

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"paperduel/internal/domain"
	"paperduel/internal/sim"
)

// Command-level errors. All are non-fatal: the session keeps accepting
// commands after reporting them.
var (
	// ErrInvalidCommand is returned for a command issued in a state that
	// cannot accept it, e.g. STEP after the session finished.
	ErrInvalidCommand = errors.New("command not valid in current state")

	// ErrNoNextBar is returned when a fill was requested but no future bar
	// exists to price it against.
	ErrNoNextBar = errors.New("no next bar to fill against")

	// ErrTradeLimit is returned when the session's trade budget is spent.
	ErrTradeLimit = errors.New("trade limit reached")
)

// State is the replay session lifecycle state.
type State string

const (
	StateNotStarted State = "not_started"
	StateSeeded     State = "seeded"
	StatePlaying    State = "playing"
	StatePaused     State = "paused"
	StateFinished   State = "finished"
)

// EndReason records why a session reached StateFinished.
type EndReason string

const (
	EndDataExhausted EndReason = "data exhausted"
	EndMaxDrawdown   EndReason = "max drawdown"
	EndManual        EndReason = "manual"
)

// Rules are the per-session battle limits. Zero values disable a rule.
type Rules struct {
	MaxDrawdownPct float64 // session ends when equity falls this far below its peak
	MaxTrades      int     // entries rejected once this many orders executed
}

// Session replays a bar series one reveal at a time. All methods are safe
// for concurrent use; internally every reveal, fill, and state change
// serializes on one mutex, so at most one reveal is ever in flight and a
// pause acknowledged under the lock is never followed by another reveal.
type Session struct {
	mu sync.Mutex

	id       string
	bars     []domain.Bar
	contract sim.Contract
	capital  float64
	seedBars int
	rules    Rules
	log      *slog.Logger

	state      State
	endReason  EndReason
	cursor     int // index of the most recently revealed bar
	ledger     *sim.Ledger
	curve      sim.Curve
	trades     []domain.Fill
	tradeCount int
	peakEquity float64

	result *domain.RunResult

	stopPlay chan struct{} // closes to stop the active play loop
}

// New creates a session over the given bar series. The session starts in
// StateNotStarted; call Seed to reveal the initial window.
func New(bars []domain.Bar, contract sim.Contract, capital float64, seedBars int, rules Rules, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if seedBars < 1 {
		seedBars = 1
	}
	return &Session{
		id:         uuid.NewString(),
		bars:       bars,
		contract:   contract,
		capital:    capital,
		seedBars:   seedBars,
		rules:      rules,
		log:        logger,
		state:      StateNotStarted,
		cursor:     -1,
		ledger:     sim.NewLedger(contract.Multiplier, capital),
		peakEquity: capital,
	}
}

// ID returns the session's run identifier.
func (s *Session) ID() string {
	return s.id
}

// Seed reveals the initial window of bars without generating trades and
// moves the session to StateSeeded.
func (s *Session) Seed() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return fmt.Errorf("%w: seed from %s", ErrInvalidCommand, s.state)
	}

	n := s.seedBars
	if n > len(s.bars) {
		n = len(s.bars)
	}
	for i := 0; i < n; i++ {
		s.cursor = i
		s.curve.Append(s.bars[i].Timestamp, s.ledger.Equity(s.bars[i].Close))
	}
	s.state = StateSeeded

	if s.cursor >= len(s.bars)-1 {
		s.finishLocked(EndDataExhausted)
	}
	return nil
}

// Step reveals the next bar. Valid in Seeded, Playing, and Paused states;
// reaching the end of the series auto-stops the session.
func (s *Session) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked()
}

func (s *Session) stepLocked() error {
	switch s.state {
	case StateSeeded, StatePlaying, StatePaused:
	default:
		return fmt.Errorf("%w: step from %s", ErrInvalidCommand, s.state)
	}

	if s.cursor >= len(s.bars)-1 {
		s.finishLocked(EndDataExhausted)
		return nil
	}

	s.cursor++
	bar := s.bars[s.cursor]
	equity := s.ledger.Equity(bar.Close)
	s.curve.Append(bar.Timestamp, equity)

	if equity > s.peakEquity {
		s.peakEquity = equity
	}
	if s.rules.MaxDrawdownPct > 0 {
		limit := s.peakEquity * (1 - s.rules.MaxDrawdownPct/100)
		if equity < limit {
			s.log.Warn("max drawdown breached", "run", s.id, "equity", equity, "peak", s.peakEquity)
			s.finishLocked(EndMaxDrawdown)
			return nil
		}
	}

	if s.cursor >= len(s.bars)-1 {
		s.finishLocked(EndDataExhausted)
	}
	return nil
}

// Play starts the timer-driven reveal loop at the given speed. Valid from
// Seeded or Paused.
func (s *Session) Play(speed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSeeded, StatePaused:
	default:
		return fmt.Errorf("%w: play from %s", ErrInvalidCommand, s.state)
	}
	if speed <= 0 {
		speed = time.Second
	}

	s.state = StatePlaying
	stop := make(chan struct{})
	s.stopPlay = stop

	go s.playLoop(speed, stop)
	return nil
}

// playLoop reveals one bar per tick until stopped or the session leaves
// StatePlaying. Reveals happen under the session lock, so a pause that has
// returned can never be followed by another reveal.
func (s *Session) playLoop(speed time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(speed)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StatePlaying {
				s.mu.Unlock()
				return
			}
			if err := s.stepLocked(); err != nil {
				s.mu.Unlock()
				return
			}
			done := s.state != StatePlaying
			s.mu.Unlock()
			if done {
				return
			}
		}
	}
}

// Pause suspends the play loop. A duplicate pause is ErrInvalidCommand and
// otherwise a no-op. Once Pause returns, no further timer reveal will be
// delivered.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return fmt.Errorf("%w: pause from %s", ErrInvalidCommand, s.state)
	}
	s.state = StatePaused
	s.stopPlayLocked()
	return nil
}

func (s *Session) stopPlayLocked() {
	if s.stopPlay != nil {
		close(s.stopPlay)
		s.stopPlay = nil
	}
}

// Buy executes a market buy of qty contracts against the next unrevealed
// bar's open plus slippage.
func (s *Session) Buy(qty int) (domain.Fill, error) {
	return s.Order(domain.OrderIntent{Side: domain.SideBuy, Qty: qty})
}

// Sell executes a market sell of qty contracts against the next unrevealed
// bar's open minus slippage.
func (s *Session) Sell(qty int) (domain.Fill, error) {
	return s.Order(domain.OrderIntent{Side: domain.SideSell, Qty: qty})
}

// Order executes a market order intent against the next unrevealed bar's
// open, slippage against the trader.
func (s *Session) Order(intent domain.OrderIntent) (domain.Fill, error) {
	side, qty := intent.Side, intent.Qty
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSeeded, StatePlaying, StatePaused:
	default:
		return domain.Fill{}, fmt.Errorf("%w: %s from %s", ErrInvalidCommand, side, s.state)
	}
	if qty <= 0 {
		return domain.Fill{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidCommand)
	}
	if s.rules.MaxTrades > 0 && s.tradeCount >= s.rules.MaxTrades {
		return domain.Fill{}, ErrTradeLimit
	}

	next, ok := s.nextBarLocked()
	if !ok {
		return domain.Fill{}, ErrNoNextBar
	}

	fill := s.contract.Fill(next.Timestamp, side, qty, next.Open)
	s.applyFillLocked(fill)
	s.tradeCount++
	return fill, nil
}

// Flatten drives the position to zero by emitting |position| unit fills of
// the opposing side against the next unrevealed bar. With no next bar the
// command is reported as ErrNoNextBar and nothing happens; from a flat
// position it is a no-op.
func (s *Session) Flatten() ([]domain.Fill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSeeded, StatePlaying, StatePaused:
	default:
		return nil, fmt.Errorf("%w: flatten from %s", ErrInvalidCommand, s.state)
	}

	pos := s.ledger.Position()
	if pos == 0 {
		return nil, nil
	}

	next, ok := s.nextBarLocked()
	if !ok {
		return nil, ErrNoNextBar
	}

	side := domain.SideSell
	if pos < 0 {
		side = domain.SideBuy
		pos = -pos
	}

	fills := make([]domain.Fill, 0, pos)
	for i := 0; i < pos; i++ {
		fill := s.contract.Fill(next.Timestamp, side, 1, next.Open)
		s.applyFillLocked(fill)
		fills = append(fills, fill)
	}
	return fills, nil
}

// End finishes the session manually from any non-terminal state.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFinished {
		return fmt.Errorf("%w: already finished", ErrInvalidCommand)
	}
	s.finishLocked(EndManual)
	return nil
}

// applyFillLocked routes a fill through the ledger, appends it to the trade
// log, and refreshes the equity curve at the last known close.
func (s *Session) applyFillLocked(fill domain.Fill) {
	s.ledger.Apply(fill)
	s.trades = append(s.trades, fill)
	if s.cursor >= 0 {
		bar := s.bars[s.cursor]
		s.curve.Append(bar.Timestamp, s.ledger.Equity(bar.Close))
	}
}

func (s *Session) nextBarLocked() (domain.Bar, bool) {
	if s.cursor+1 >= len(s.bars) {
		return domain.Bar{}, false
	}
	return s.bars[s.cursor+1], true
}

// finishLocked transitions to the terminal state and summarizes the run
// exactly once.
func (s *Session) finishLocked(reason EndReason) {
	if s.state == StateFinished {
		return
	}
	s.state = StateFinished
	s.endReason = reason
	s.stopPlayLocked()
	s.result = sim.Summarize(s.id, s.capital, s.trades, s.curve.Samples())
	s.log.Info("replay finished", "run", s.id, "reason", string(reason),
		"trades", len(s.trades), "finalPnl", s.result.FinalPnl)
}

// Result returns the completed run result, or nil while the session is
// still live. The caller owns the returned copy.
func (s *Session) Result() *domain.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Clone()
}

// Snapshot is a point-in-time view of the session for rendering.
type Snapshot struct {
	ID         string
	State      State
	EndReason  EndReason
	Cursor     int
	TotalBars  int
	LastBar    domain.Bar
	Position   int
	Cash       float64
	Equity     float64
	TradeCount int
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:         s.id,
		State:      s.state,
		EndReason:  s.endReason,
		Cursor:     s.cursor,
		TotalBars:  len(s.bars),
		Position:   s.ledger.Position(),
		Cash:       s.ledger.Cash(),
		TradeCount: s.tradeCount,
	}
	if s.cursor >= 0 {
		snap.LastBar = s.bars[s.cursor]
		snap.Equity = s.ledger.Equity(snap.LastBar.Close)
	} else {
		snap.Equity = s.capital
	}
	return snap
}

// RevealedBars returns a copy of the bars revealed so far.
func (s *Session) RevealedBars() []domain.Bar {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Bar, s.cursor+1)
	copy(out, s.bars[:s.cursor+1])
	return out
}
