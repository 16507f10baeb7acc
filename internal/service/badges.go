package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/registry"
)

// DefaultBadgeSessionTTL is how long an untouched badge edit stays open.
const DefaultBadgeSessionTTL = 30 * time.Minute

// BadgeSessions holds the admins' open badge edits between requests.
//
// Each entry wraps an immutable registry.BadgeSession; Toggle swaps in the
// new value. An entry leaves the map when it is committed, discarded, or
// left idle for longer than the TTL.
type BadgeSessions struct {
	owners *OwnerService
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	open map[string]*badgeEntry
}

type badgeEntry struct {
	adminID string
	session registry.BadgeSession
	touched time.Time
}

func NewBadgeSessions(owners *OwnerService, ttl time.Duration, logger *slog.Logger) *BadgeSessions {
	if ttl <= 0 {
		ttl = DefaultBadgeSessionTTL
	}
	return &BadgeSessions{
		owners: owners,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		open:   make(map[string]*badgeEntry),
	}
}

// Open starts a badge edit for ownerID seeded with its current badges. Any
// earlier session the same admin had open on that owner is discarded.
func (b *BadgeSessions) Open(ctx context.Context, adminID, ownerID string) (string, registry.BadgeSession, error) {
	owner, err := b.owners.Get(ctx, ownerID)
	if err != nil {
		return "", registry.BadgeSession{}, err
	}

	session := registry.OpenBadgeSession(*owner)
	id := xid.New().String()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()
	for sid, e := range b.open {
		if e.adminID == adminID && e.session.OwnerID() == ownerID {
			_ = e.session.Discard()
			delete(b.open, sid)
		}
	}
	b.open[id] = &badgeEntry{adminID: adminID, session: session, touched: b.now()}

	b.logger.Debug("badge session opened",
		slog.String("sessionID", id),
		slog.String("ownerID", ownerID),
	)
	return id, session, nil
}

// Get returns the current state of a session.
func (b *BadgeSessions) Get(adminID, sessionID string) (registry.BadgeSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.entryLocked(adminID, sessionID)
	if err != nil {
		return registry.BadgeSession{}, err
	}
	e.touched = b.now()
	return e.session, nil
}

// Toggle adds or removes label. Only catalogue labels can be added; a label
// already on the owner can always be removed.
func (b *BadgeSessions) Toggle(adminID, sessionID, label string) (registry.BadgeSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.entryLocked(adminID, sessionID)
	if err != nil {
		return registry.BadgeSession{}, err
	}
	if !e.session.Has(label) && !slices.Contains(model.AvailableBadges, label) {
		return registry.BadgeSession{}, apperror.ValidationFailed("label", fmt.Sprintf("unknown badge %q", label))
	}

	next, err := e.session.Toggle(label)
	if err != nil {
		return registry.BadgeSession{}, b.closedError(sessionID, err)
	}
	e.session = next
	e.touched = b.now()
	return next, nil
}

// Commit closes the session and saves its badge list on the owner.
func (b *BadgeSessions) Commit(ctx context.Context, adminID, sessionID string) ([]string, error) {
	b.mu.Lock()
	e, err := b.entryLocked(adminID, sessionID)
	if err == nil {
		delete(b.open, sessionID)
	}
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	badges, err := e.session.Commit()
	if err != nil {
		return nil, b.closedError(sessionID, err)
	}
	if err := b.owners.SetBadges(ctx, e.session.OwnerID(), badges); err != nil {
		return nil, fmt.Errorf("saving badges: %w", err)
	}
	return badges, nil
}

// Discard closes the session without saving.
func (b *BadgeSessions) Discard(adminID, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.entryLocked(adminID, sessionID)
	if err != nil {
		return err
	}
	delete(b.open, sessionID)
	if err := e.session.Discard(); err != nil {
		return b.closedError(sessionID, err)
	}
	return nil
}

// Len is the number of open sessions, expired ones included until the next
// sweep.
func (b *BadgeSessions) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

func (b *BadgeSessions) entryLocked(adminID, sessionID string) (*badgeEntry, error) {
	e, ok := b.open[sessionID]
	if !ok || e.adminID != adminID {
		return nil, apperror.NotFound("badge session", sessionID)
	}
	if b.now().Sub(e.touched) > b.ttl {
		_ = e.session.Discard()
		delete(b.open, sessionID)
		return nil, apperror.NotFound("badge session", sessionID)
	}
	return e, nil
}

func (b *BadgeSessions) sweepLocked() {
	cutoff := b.now().Add(-b.ttl)
	for id, e := range b.open {
		if e.touched.Before(cutoff) {
			_ = e.session.Discard()
			delete(b.open, id)
		}
	}
}

// closedError reports use of a closed session. Entries leave the map when
// they close, so reaching this is a bug.
func (b *BadgeSessions) closedError(sessionID string, err error) error {
	if errors.Is(err, registry.ErrSessionClosed) {
		b.logger.Error("badge session used after close",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
		return apperror.ConflictMsg("badge session is already closed")
	}
	return err
}
