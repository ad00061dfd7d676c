package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dartopia/darts-server/internal/engine"
)

var ErrUnknownPlayer = errors.New("unknown player")
var ErrNotYourTurn = errors.New("not your turn")
var ErrNotStarted = errors.New("game not started")
var ErrAlreadyStarted = errors.New("game already started")
var ErrFinished = errors.New("game already finished")

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Kind tags an outbound push so clients can dispatch without diffing snapshots.
type Kind string

const (
	KindState    Kind = "state"
	KindScore    Kind = "score"
	KindTurn     Kind = "turn"
	KindGameOver Kind = "game_over"
)

type Msg interface{ isSessionMsg() }

// Join registers (or replaces) the live transport for a player. The new
// outbox immediately receives a full snapshot, so a reconnecting client
// never resumes from stale state.
type Join struct {
	PlayerID string
	Outbox   chan Push
	Reply    chan error
}

func (Join) isSessionMsg() {}

// Leave unregisters a transport. It carries the outbox so a stale Leave from
// a connection that has since been replaced cannot tear down the player's
// live replacement; unregistering an already-gone transport is a no-op.
type Leave struct {
	PlayerID string
	Outbox   chan Push
}

func (Leave) isSessionMsg() {}

// Throw reports one dart for scoring. Reply always carries the authoritative
// snapshot alongside the outcome or rejection.
type Throw struct {
	PlayerID string
	Hit      engine.Hit
	Reply    chan ThrowReply
}

func (Throw) isSessionMsg() {}

type Start struct{ Reply chan error }

func (Start) isSessionMsg() {}

type GetState struct{ Reply chan Snapshot }

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type Push struct {
	Kind     Kind
	Snapshot Snapshot
}

type ThrowReply struct {
	Outcome  engine.Outcome
	Snapshot Snapshot
	Err      error
}

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// ScoreEvent is one appended log entry. Events are never deleted; a bust
// flips Reverted on the turn's entries and restores the turn-start score.
type ScoreEvent struct {
	Seq        int       `json:"seq"`
	PlayerID   string    `json:"player_id"`
	Section    int       `json:"section"`
	Multiplier int       `json:"multiplier"`
	Points     int       `json:"points"`
	Reverted   bool      `json:"reverted"`
	At         time.Time `json:"at"`
}

// Snapshot is a self-consistent copy of session state, safe to hand to
// transport goroutines: nothing in it aliases the live structures.
type Snapshot struct {
	ID      string         `json:"id"`
	Variant string         `json:"variant"`
	Status  Status         `json:"status"`
	Players []PlayerView   `json:"players"`
	Current int            `json:"current"`
	Scores  map[string]int `json:"scores"`
	Events  []ScoreEvent   `json:"events"`
	Winner  string         `json:"winner,omitempty"`
	Version int            `json:"version"`
}

// Recorder archives a finished match. Implementations must tolerate being
// called from a separate goroutine.
type Recorder interface {
	RecordMatch(Snapshot) error
}

type Options struct {
	IdleTimeout time.Duration   // evict after this long with no clients; 0 disables
	OnEmpty     func(id string) // called once when the idle timeout fires
	Recorder    Recorder        // optional finished-match archive
	Logger      *zap.Logger
}

type Session struct {
	id      string
	variant engine.Variant
	players []Player
	scores  map[string]int
	events  []ScoreEvent
	status  Status
	current int
	winner  string
	version int

	// per-turn bookkeeping for slot counting and bust rollback
	turnStart int
	darts     int

	inbox   chan Msg
	clients map[string]chan Push
	idle    *time.Timer

	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, id string, v engine.Variant, players []Player, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		id:      id,
		variant: v,
		players: players,
		scores:  make(map[string]int, len(players)),
		events:  []ScoreEvent{},
		status:  StatusWaiting,
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan Push),
		opts:    opts,
		log:     opts.Logger.With(zap.String("session", id)),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, p := range players {
		s.scores[p.ID] = v.StartingScore
	}
	s.armIdle() // fresh sessions start with nobody connected

	go s.loop()
	return s
}

// Inbox exposes the message channel to the transport layer and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) ID() string { return s.id }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-s.idleC():
			if len(s.clients) == 0 {
				s.log.Info("idle timeout, tearing down")
				if s.opts.OnEmpty != nil {
					s.opts.OnEmpty(s.id)
				}
				s.shutdown()
				return
			}

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- s.handleJoin(msg)

			case Leave:
				s.handleLeave(msg)

			case Throw:
				msg.Reply <- s.handleThrow(msg.PlayerID, msg.Hit)

			case Start:
				msg.Reply <- s.handleStart()

			case GetState:
				msg.Reply <- s.snapshot()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleJoin(msg Join) error {
	if !s.isPlayer(msg.PlayerID) {
		return ErrUnknownPlayer
	}
	if old, ok := s.clients[msg.PlayerID]; ok {
		close(old) // replacement: the stale writer sees its channel close
	}
	s.clients[msg.PlayerID] = msg.Outbox
	s.disarmIdle()

	s.version++
	s.broadcast(KindState)
	s.log.Info("player connected", zap.String("player", msg.PlayerID))
	return nil
}

func (s *Session) handleLeave(msg Leave) {
	ch, ok := s.clients[msg.PlayerID]
	if !ok || ch != msg.Outbox {
		// Already unregistered, or a stale Leave from a connection that a
		// reconnect has replaced: either way, not our transport to drop.
		return
	}
	close(ch)
	delete(s.clients, msg.PlayerID)
	if len(s.clients) == 0 {
		s.armIdle()
	}

	s.version++
	s.broadcast(KindState)
	s.log.Info("player disconnected", zap.String("player", msg.PlayerID))
}

func (s *Session) handleStart() error {
	switch s.status {
	case StatusActive:
		return ErrAlreadyStarted
	case StatusFinished:
		return ErrFinished
	}
	s.status = StatusActive
	s.beginTurn(s.current)

	s.version++
	s.broadcast(KindTurn)
	s.log.Info("game started", zap.String("variant", s.variant.Name))
	return nil
}

func (s *Session) handleThrow(playerID string, hit engine.Hit) ThrowReply {
	// Admission checks first: a rejected throw mutates nothing, appends
	// nothing, and broadcasts nothing.
	switch s.status {
	case StatusWaiting:
		return ThrowReply{Snapshot: s.snapshot(), Err: ErrNotStarted}
	case StatusFinished:
		return ThrowReply{Snapshot: s.snapshot(), Err: ErrFinished}
	}
	if !s.isPlayer(playerID) {
		return ThrowReply{Snapshot: s.snapshot(), Err: ErrUnknownPlayer}
	}
	if playerID != s.players[s.current].ID {
		return ThrowReply{Snapshot: s.snapshot(), Err: ErrNotYourTurn}
	}
	if err := engine.ValidateHit(hit); err != nil {
		return ThrowReply{Snapshot: s.snapshot(), Err: err}
	}

	newScore, outcome := engine.ScoreThrow(s.variant, s.scores[playerID], hit)

	s.events = append(s.events, ScoreEvent{
		Seq:        len(s.events) + 1,
		PlayerID:   playerID,
		Section:    hit.Section,
		Multiplier: hit.Multiplier,
		Points:     hit.Points(),
		At:         time.Now(),
	})

	kind := KindScore
	switch outcome {
	case engine.OutcomeContinue:
		s.scores[playerID] = newScore
		s.darts++
		if s.darts >= s.variant.DartsPerTurn {
			s.advanceTurn()
			kind = KindTurn
		}

	case engine.OutcomeBust:
		s.revertTurn(playerID)
		s.advanceTurn()
		kind = KindTurn

	case engine.OutcomeWin:
		s.scores[playerID] = 0
		s.status = StatusFinished
		s.winner = playerID
		kind = KindGameOver
	}

	s.version++
	s.broadcast(kind)

	snap := s.snapshot()
	if outcome == engine.OutcomeWin {
		s.log.Info("game won",
			zap.String("player", playerID),
			zap.Int("darts", len(s.events)))
		if s.opts.Recorder != nil {
			go func() {
				if err := s.opts.Recorder.RecordMatch(snap); err != nil {
					s.log.Error("recording match failed", zap.Error(err))
				}
			}()
		}
	}
	return ThrowReply{Outcome: outcome, Snapshot: snap}
}

// revertTurn flags every event of the current turn (including the bust dart
// just appended) and restores the thrower's turn-start score. Point values
// in the log are left as thrown.
func (s *Session) revertTurn(playerID string) {
	for i := len(s.events) - (s.darts + 1); i < len(s.events); i++ {
		s.events[i].Reverted = true
	}
	s.scores[playerID] = s.turnStart
}

// advanceTurn moves the pointer round-robin to the next player with a live
// connection; disconnected players are skipped rather than awaited. When
// nobody is connected the pointer still advances one seat, so play resumes
// in order after a reconnect.
func (s *Session) advanceTurn() {
	n := len(s.players)
	next := (s.current + 1) % n
	for i := 0; i < n; i++ {
		cand := (s.current + 1 + i) % n
		if _, ok := s.clients[s.players[cand].ID]; ok {
			next = cand
			break
		}
	}
	s.beginTurn(next)
}

func (s *Session) beginTurn(idx int) {
	s.current = idx
	s.turnStart = s.scores[s.players[idx].ID]
	s.darts = 0
}

func (s *Session) isPlayer(id string) bool {
	for _, p := range s.players {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) snapshot() Snapshot {
	players := make([]PlayerView, len(s.players))
	for i, p := range s.players {
		_, connected := s.clients[p.ID]
		players[i] = PlayerView{ID: p.ID, Name: p.Name, Connected: connected}
	}
	scores := make(map[string]int, len(s.scores))
	for id, sc := range s.scores {
		scores[id] = sc
	}
	events := make([]ScoreEvent, len(s.events))
	copy(events, s.events)

	return Snapshot{
		ID:      s.id,
		Variant: s.variant.Name,
		Status:  s.status,
		Players: players,
		Current: s.current,
		Scores:  scores,
		Events:  events,
		Winner:  s.winner,
		Version: s.version,
	}
}

func (s *Session) broadcast(kind Kind) {
	push := Push{Kind: kind, Snapshot: s.snapshot()}
	for id, ch := range s.clients {
		select {
		case ch <- push:
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
			s.log.Warn("dropping slow client", zap.String("player", id))
		}
	}
	if len(s.clients) == 0 {
		s.armIdle()
	}
}

func (s *Session) armIdle() {
	if s.opts.IdleTimeout <= 0 || s.idle != nil {
		return
	}
	s.idle = time.NewTimer(s.opts.IdleTimeout)
}

func (s *Session) disarmIdle() {
	if s.idle == nil {
		return
	}
	s.idle.Stop()
	s.idle = nil
}

func (s *Session) idleC() <-chan time.Time {
	if s.idle == nil {
		return nil
	}
	return s.idle.C
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch) // tell clients no more pushes
		delete(s.clients, id)
	}
	s.disarmIdle()
	s.cancel()
}
