package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"meshwire/internal/codec"
	"meshwire/internal/domain"
	"meshwire/internal/protocol/seal"
)

// Options tunes the manager; zero values select the defaults.
type Options struct {
	// MaxConcurrent bounds in-flight outgoing messages; further Queue calls
	// block until a slot frees. Default 10.
	MaxConcurrent int
	// AckTimeout is how long a transport send may wait for acknowledgement
	// before the message fails with ErrAckTimeout. Default 10s.
	AckTimeout time.Duration
	// PruneInterval is how often the retention sweep runs. Default 1h.
	PruneInterval time.Duration
	// EventBuffer is the event channel depth. Default 64.
	EventBuffer int
}

func (o *Options) withDefaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 10
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = 10 * time.Second
	}
	if o.PruneInterval <= 0 {
		o.PruneInterval = time.Hour
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
}

// Service orchestrates encrypt-and-send and receive-and-classify between
// the session layer, the codec, the store, and the transport.
type Service struct {
	ids       domain.IdentityService
	sessions  domain.SessionService
	store     domain.MessageStore
	transport domain.Transport
	log       *logrus.Logger
	opts      Options

	sem    chan struct{}
	events chan domain.Event
}

// New wires a message manager. The transport is a collaborator: anything
// that moves opaque frames between device identities.
func New(ids domain.IdentityService, sessions domain.SessionService, store domain.MessageStore,
	tr domain.Transport, opts Options, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts.withDefaults()
	return &Service{
		ids:       ids,
		sessions:  sessions,
		store:     store,
		transport: tr,
		log:       log,
		opts:      opts,
		sem:       make(chan struct{}, opts.MaxConcurrent),
		events:    make(chan domain.Event, opts.EventBuffer),
	}
}

// Events is the manager's notification stream: Delivered, Dropped,
// Acknowledged, and Failed. A slow consumer loses events rather than
// blocking the message paths.
func (s *Service) Events() <-chan domain.Event { return s.events }

// Conversation returns the stored history for a peer (or
// domain.BroadcastKey for the broadcast view).
func (s *Service) Conversation(peer domain.DeviceID) ([]domain.StoredMessage, error) {
	key := peer.String()
	if peer.IsBroadcast() {
		key = domain.BroadcastKey
	}
	return s.store.Conversation(key)
}

// Queue accepts an outgoing message, blocking while all in-flight slots are
// taken (backpressure; cancellable through ctx). Delivery continues
// asynchronously: the terminal Acknowledged or Failed state arrives on the
// event stream. Messages are never silently dropped.
func (s *Service) Queue(ctx context.Context, msg domain.Message) error {
	if msg.Sender == "" {
		msg.Sender = s.ids.Identity().ID
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	go func() {
		defer func() { <-s.sem }()
		s.deliver(ctx, msg)
	}()
	return nil
}

// deliver drives one message through Encrypting -> Sent -> terminal state.
func (s *Service) deliver(ctx context.Context, msg domain.Message) {
	plaintext, err := codec.Encode(msg)
	if err != nil {
		s.fail(msg, err)
		return
	}

	if msg.Recipient.IsBroadcast() {
		s.deliverBroadcast(ctx, msg, plaintext)
		return
	}

	sess, err := s.sessions.Lookup(msg.Recipient)
	if err != nil {
		s.fail(msg, err)
		return
	}
	frame, err := s.sealFrame(sess, msg, plaintext)
	if err != nil {
		s.fail(msg, err)
		return
	}

	// Last cancellation point: once the frame is handed to the transport
	// the message counts as sent and cancellation has no effect.
	if ctx.Err() != nil {
		s.fail(msg, ctx.Err())
		return
	}
	if err := s.send(ctx, msg.Recipient, frame); err != nil {
		s.fail(msg, err)
		return
	}
	s.acknowledge(msg)
}

// deliverBroadcast fans one message out over every known peer's pairwise
// session. The message is acknowledged when every send succeeds, stored
// once under the broadcast conversation, and failed only when no peer could
// be reached.
func (s *Service) deliverBroadcast(ctx context.Context, msg domain.Message, plaintext []byte) {
	peers := s.sessions.Peers()
	if len(peers) == 0 {
		s.fail(msg, fmt.Errorf("broadcast with no known peers: %w", domain.ErrUnknownPeer))
		return
	}
	if ctx.Err() != nil {
		s.fail(msg, ctx.Err())
		return
	}

	var errs []error
	delivered := 0
	for _, peer := range peers {
		sess, err := s.sessions.Lookup(peer)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", peer, err))
			continue
		}
		frame, err := s.sealFrame(sess, msg, plaintext)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", peer, err))
			continue
		}
		if err := s.send(ctx, peer, frame); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", peer, err))
			continue
		}
		delivered++
	}

	if delivered == 0 {
		s.fail(msg, errors.Join(errs...))
		return
	}
	if len(errs) > 0 {
		s.log.WithError(errors.Join(errs...)).WithFields(logrus.Fields{
			"msg_id":    msg.ID,
			"delivered": delivered,
			"known":     len(peers),
		}).Warn("broadcast reached only part of the mesh")
	}
	s.acknowledge(msg)
}

// sealFrame encrypts the plaintext for one session and frames the envelope.
func (s *Service) sealFrame(sess *domain.Session, msg domain.Message, plaintext []byte) ([]byte, error) {
	env, err := seal.Seal(sess, msg.Sender, msg.Recipient, sess.NextCounter(), plaintext)
	if err != nil {
		return nil, err
	}
	return codec.EncodeEnvelope(env)
}

// send pushes a frame with the acknowledgement window applied.
func (s *Service) send(ctx context.Context, to domain.DeviceID, frame []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.opts.AckTimeout)
	defer cancel()
	if err := s.transport.Send(sendCtx, to, frame); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ErrAckTimeout
		}
		return err
	}
	return nil
}

func (s *Service) acknowledge(msg domain.Message) {
	stored := domain.StoredMessage{
		Message:         msg,
		Direction:       domain.Outbound,
		ConversationKey: domain.ConversationKeyFor(msg, domain.Outbound),
	}
	if err := s.store.Append(stored); err != nil {
		s.log.WithError(err).WithField("msg_id", msg.ID).Error("failed to store outbound message")
	}
	s.emit(domain.Event{
		Kind:    domain.EventAcknowledged,
		Message: msg,
		Peer:    msg.Recipient,
		Time:    time.Now().UTC(),
	})
}

func (s *Service) fail(msg domain.Message, err error) {
	s.log.WithError(err).WithFields(logrus.Fields{
		"msg_id": msg.ID,
		"peer":   msg.Recipient,
	}).Warn("outgoing message failed")
	s.emit(domain.Event{
		Kind:    domain.EventFailed,
		Message: msg,
		Peer:    msg.Recipient,
		Err:     err,
		Time:    time.Now().UTC(),
	})
}

// Run consumes inbound frames and runs the retention sweep until ctx is
// done. Inbound processing is independent of outbound backpressure.
func (s *Service) Run(ctx context.Context) error {
	frames, err := s.transport.Frames(ctx)
	if err != nil {
		return fmt.Errorf("start frame stream: %w", err)
	}

	pruneTick := time.NewTicker(s.opts.PruneInterval)
	defer pruneTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			s.handleFrame(frame)
		case now := <-pruneTick.C:
			if n, err := s.store.Prune(now); err != nil {
				s.log.WithError(err).Warn("retention prune failed")
			} else if n > 0 {
				s.log.WithField("removed", n).Debug("retention prune")
			}
		}
	}
}

// handleFrame drives one inbound frame Received -> Decrypting ->
// Classified -> Delivered, dropping it on any crypto, codec, or session
// error. Drops surface as events and security log entries, never as
// propagated errors.
func (s *Service) handleFrame(frame []byte) {
	env, err := codec.DecodeEnvelope(frame)
	if err != nil {
		s.drop("", err)
		return
	}

	self := s.ids.Identity().ID
	if !env.Recipient.IsBroadcast() && env.Recipient != self {
		// Addressed to someone else; the transport should not have
		// delivered it here. Not a security event, just noise.
		s.log.WithFields(logrus.Fields{
			"sender":    env.Sender,
			"recipient": env.Recipient,
		}).Debug("ignoring misdelivered frame")
		return
	}

	sess, err := s.sessions.Lookup(env.Sender)
	if err != nil {
		s.drop(env.Sender, err)
		return
	}

	plaintext, err := seal.Open(sess, env)
	if err != nil {
		if errors.Is(err, domain.ErrAuthenticationFailed) {
			s.sessions.RecordFailure(sess)
		}
		s.drop(env.Sender, err)
		return
	}

	msg, err := codec.Decode(plaintext)
	if err != nil {
		s.drop(env.Sender, err)
		return
	}
	switch msg.Body.(type) {
	case domain.Text, domain.Command:
	default:
		s.drop(env.Sender, fmt.Errorf("unclassifiable message body: %w", domain.ErrMalformed))
		return
	}

	stored := domain.StoredMessage{
		Message:         msg,
		Direction:       domain.Inbound,
		ConversationKey: domain.ConversationKeyFor(msg, domain.Inbound),
	}
	if err := s.store.Append(stored); err != nil {
		s.log.WithError(err).WithField("msg_id", msg.ID).Error("failed to store inbound message")
	}
	s.emit(domain.Event{
		Kind:    domain.EventDelivered,
		Message: msg,
		Peer:    msg.Sender,
		Time:    time.Now().UTC(),
	})
}

// drop records a discarded inbound frame: a security event, exactly once.
func (s *Service) drop(peer domain.DeviceID, err error) {
	s.log.WithError(err).WithField("peer", peer).Warn("dropped inbound frame")
	s.emit(domain.Event{
		Kind: domain.EventDropped,
		Peer: peer,
		Err:  err,
		Time: time.Now().UTC(),
	})
}

func (s *Service) emit(ev domain.Event) {
	select {
	case s.events <- ev:
	default:
		s.log.WithField("kind", ev.Kind).Debug("event stream full; notification lost")
	}
}
