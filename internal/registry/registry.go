package registry

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/dartopia/darts-server/internal/engine"
	"github.com/dartopia/darts-server/internal/session"
)

var ErrNotFound = errors.New("session not found")
var ErrInvalidPlayers = errors.New("invalid player list")

type Msg interface{ isRegistryMsg() }

// Create validates the request, spins up a session under a fresh code and
// replies with it plus the initial snapshot. The entry is visible to every
// later Get before the reply is sent.
type Create struct {
	Variant      string
	Players      []session.Player
	DartsPerTurn int // 0 keeps the variant default
	Reply        chan CreateReply
}

func (Create) isRegistryMsg() {}

type Get struct {
	ID    string
	Reply chan *session.Session
}

func (Get) isRegistryMsg() {}

// Remove evicts a session. Used by the admin route and by sessions evicting
// themselves after their idle timeout.
type Remove struct{ ID string }

func (Remove) isRegistryMsg() {}

type Shutdown struct{}

func (Shutdown) isRegistryMsg() {}

type CreateReply struct {
	ID       string
	Sess     *session.Session
	Snapshot session.Snapshot
	Err      error
}

type Options struct {
	IdleTimeout time.Duration
	Recorder    session.Recorder
	Logger      *zap.Logger
}

type Registry struct {
	inbox    chan Msg
	sessions map[string]*session.Session
	opts     Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, opts Options) *Registry {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	r := &Registry{
		inbox:    make(chan Msg, 64),
		sessions: make(map[string]*session.Session),
		opts:     opts,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Create:
				msg.Reply <- r.create(msg)

			case Get:
				msg.Reply <- r.sessions[msg.ID] // may be nil

			case Remove:
				if sess := r.sessions[msg.ID]; sess != nil {
					delete(r.sessions, msg.ID)
					sess.Inbox() <- session.Shutdown{}
					r.log.Info("session removed", zap.String("session", msg.ID))
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Registry) create(msg Create) CreateReply {
	v, err := engine.LookupVariant(msg.Variant)
	if err != nil {
		return CreateReply{Err: err}
	}
	if msg.DartsPerTurn > 0 {
		v.DartsPerTurn = msg.DartsPerTurn
	}
	players := msg.Players
	if err := validatePlayers(v, players); err != nil {
		return CreateReply{Err: err}
	}

	id := r.freshCode()
	sess := session.New(r.ctx, id, v, players, session.Options{
		IdleTimeout: r.opts.IdleTimeout,
		OnEmpty:     func(id string) { r.inbox <- Remove{ID: id} },
		Recorder:    r.opts.Recorder,
		Logger:      r.log,
	})
	r.sessions[id] = sess

	reply := make(chan session.Snapshot, 1)
	sess.Inbox() <- session.GetState{Reply: reply}
	snap := <-reply

	r.log.Info("session created",
		zap.String("session", id),
		zap.String("variant", msg.Variant),
		zap.Int("players", len(players)))
	return CreateReply{ID: id, Sess: sess, Snapshot: snap}
}

func validatePlayers(v engine.Variant, players []session.Player) error {
	if len(players) < v.MinPlayers || len(players) > v.MaxPlayers {
		return ErrInvalidPlayers
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p.ID == "" || seen[p.ID] {
			return ErrInvalidPlayers
		}
		seen[p.ID] = true
	}
	return nil
}

func (r *Registry) freshCode() string {
	for {
		code, err := generateCode()
		if err != nil {
			continue
		}
		if _, taken := r.sessions[code]; !taken {
			return code
		}
		r.log.Debug("collision on code, regenerating")
	}
}

func generateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func (r *Registry) shutdown() {
	for _, sess := range r.sessions {
		sess.Inbox() <- session.Shutdown{}
	}
	clear(r.sessions)
	r.cancel()
}
