package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-bingo-admin/internal/errors"
	"github.com/jrsteele09/go-bingo-admin/token"
	"github.com/jrsteele09/go-bingo-admin/token/refresh"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStorageKey      = "bingo-admin-session"
	DefaultRefreshInterval = 4 * time.Minute

	refreshFlightKey = "refresh"
)

// Store is the session context for one admin client: the token pair, the claims and
// permissions derived from it, and the scheduler that keeps it fresh.
type Store struct {
	repo             Repo
	refresher        Refresher
	decoder          token.Decoder
	roles            token.RoleMap
	storageKey       string
	refreshInterval  time.Duration
	schedulerOptions []refresh.SchedulerOption
	nowTime          func() time.Time
	scheduler        *refresh.Scheduler
	flight           singleflight.Group

	mu          sync.RWMutex
	pair        token.Pair
	claims      *token.Claims
	permissions token.PermissionSet
	epoch       uint64
	closed      bool

	subMu       sync.Mutex
	subscribers []*subscriber
}

type subscriber struct {
	fn func(Event)
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithDecoder replaces the default unverified claims decoder
func WithDecoder(decoder token.Decoder) StoreOption {
	return func(s *Store) {
		s.decoder = decoder
	}
}

// WithRoleMap grants permissions per role on top of the token's explicit permissions
func WithRoleMap(roles token.RoleMap) StoreOption {
	return func(s *Store) {
		s.roles = roles
	}
}

func WithStorageKey(key string) StoreOption {
	return func(s *Store) {
		s.storageKey = key
	}
}

func WithRefreshInterval(interval time.Duration) StoreOption {
	return func(s *Store) {
		s.refreshInterval = interval
	}
}

func WithSchedulerOptions(options ...refresh.SchedulerOption) StoreOption {
	return func(s *Store) {
		s.schedulerOptions = append(s.schedulerOptions, options...)
	}
}

// WithNowTime sets the clock used to stamp persisted records, primarily for testing
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// New creates an empty, unauthenticated session context. Call Restore to pick up a
// previously persisted session.
func New(repo Repo, refresher Refresher, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("[sessions New] session repo is required")
	}
	if refresher == nil {
		return nil, fmt.Errorf("[sessions New] refresher is required")
	}

	s := &Store{
		repo:            repo,
		refresher:       refresher,
		decoder:         token.UnverifiedDecoder{},
		roles:           token.RoleMap{},
		storageKey:      DefaultStorageKey,
		refreshInterval: DefaultRefreshInterval,
		nowTime:         time.Now,
		permissions:     token.PermissionSet{},
	}
	for _, opt := range options {
		opt(s)
	}
	s.scheduler = refresh.NewScheduler(s.refreshInterval, s.scheduledRefresh, s.schedulerOptions...)
	return s, nil
}

// Login stores a freshly issued pair. Claims are decoded first; a pair that cannot be
// decoded or persisted leaves the store untouched.
func (s *Store) Login(ctx context.Context, pair token.Pair) error {
	if err := pair.Validate(); err != nil {
		return err
	}

	claims, err := s.decoder.Decode(ctx, pair.AccessToken)
	if err != nil {
		return errors.Wrapf(err, "[Store Login] failed to decode access token")
	}
	permissions := token.Permissions(claims, s.roles)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrSessionClosed, "[Store Login]")
	}
	if err := s.persist(pair); err != nil {
		s.mu.Unlock()
		return errors.Wrapf(err, "[Store Login] failed to persist session")
	}
	s.epoch++
	s.apply(pair, claims, permissions)
	s.mu.Unlock()

	log.Info().Str("subject", claims.Subject).Str("tenant", claims.Tenant).Msg("session started")
	s.publish(Event{Type: EventLogin, Claims: claims})
	return nil
}

// Logout clears the session and its persisted record. Calling it on an empty session
// is a no-op apart from the record removal.
func (s *Store) Logout() error {
	s.mu.Lock()
	wasAuthenticated, err := s.clear()
	s.mu.Unlock()

	if wasAuthenticated {
		log.Info().Msg("session ended")
		s.publish(Event{Type: EventLogout})
	}
	return err
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers share one
// exchange. A rejected or failed exchange ends the session unless the caller's own
// context was cancelled.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	// one flight per session epoch
	key := fmt.Sprintf("%s-%d", refreshFlightKey, epoch)
	_, err, _ := s.flight.Do(key, func() (any, error) {
		return nil, s.refresh(ctx, epoch)
	})
	return err
}

func (s *Store) refresh(ctx context.Context, epoch uint64) error {
	s.mu.RLock()
	closed := s.closed
	cleared := s.epoch != epoch
	refreshToken := s.pair.RefreshToken
	s.mu.RUnlock()

	if closed {
		return errors.Wrapf(errors.ErrSessionClosed, "[Store Refresh]")
	}
	if cleared {
		return errors.Wrapf(errors.ErrSessionCleared, "[Store Refresh]")
	}
	if refreshToken == "" {
		return errors.Wrapf(errors.ErrNoRefreshToken, "[Store Refresh]")
	}

	pair, err := s.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "[Store Refresh] refresh abandoned")
		}
		return s.failRefresh(epoch, err)
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	if err := pair.Validate(); err != nil {
		return s.failRefresh(epoch, err)
	}

	claims, err := s.decoder.Decode(ctx, pair.AccessToken)
	if errors.Is(err, errors.ErrKeysUnavailable) {
		log.Warn().Err(err).Msg("signing keys unavailable, using unverified claims of the refreshed token")
		claims, err = token.UnverifiedDecoder{}.Decode(ctx, pair.AccessToken)
	}
	if err != nil {
		return s.failRefresh(epoch, err)
	}
	permissions := token.Permissions(claims, s.roles)

	s.mu.Lock()
	if s.epoch != epoch || s.closed {
		s.mu.Unlock()
		log.Debug().Msg("discarding refresh response for a cleared session")
		return errors.Wrapf(errors.ErrSessionCleared, "[Store Refresh]")
	}
	if err := s.persist(pair); err != nil {
		log.Err(err).Msg("failed to persist refreshed session")
	}
	s.apply(pair, claims, permissions)
	s.mu.Unlock()

	log.Debug().Str("subject", claims.Subject).Msg("session refreshed")
	s.publish(Event{Type: EventRefresh, Claims: claims})
	return nil
}

// failRefresh ends the session the failed exchange belonged to. A newer session is
// left alone.
func (s *Store) failRefresh(epoch uint64, cause error) error {
	s.mu.Lock()
	if s.epoch != epoch || s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", errors.ErrSessionCleared, cause)
	}
	wasAuthenticated, err := s.clear()
	s.mu.Unlock()

	if err != nil {
		log.Err(err).Msg("failed to remove persisted session")
	}
	log.Warn().Err(cause).Msg("token refresh failed, session ended")
	if wasAuthenticated {
		s.publish(Event{Type: EventLogout, Err: cause})
	}
	return fmt.Errorf("%w: %w", errors.ErrRefreshFailed, cause)
}

func (s *Store) scheduledRefresh(ctx context.Context) error {
	err := s.Refresh(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, errors.ErrSessionCleared) {
		return nil
	}
	return err
}

// Restore reloads the persisted session. It returns false with no error when nothing
// was stored. An expired access token is refreshed straight away.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	record, err := s.repo.Load(s.storageKey)
	if err != nil {
		return false, errors.Wrapf(err, "[Store Restore] failed to load session")
	}
	if record == nil || record.AccessToken == "" {
		return false, nil
	}
	pair := record.Pair()

	claims, err := s.decoder.Decode(ctx, pair.AccessToken)
	expired := errors.Is(err, errors.ErrTokenExpired)
	if expired {
		claims, err = token.UnverifiedDecoder{}.Decode(ctx, pair.AccessToken)
	}
	if err != nil {
		if !errors.Is(err, errors.ErrInvalidToken) && !errors.Is(err, errors.ErrMissingClaims) {
			return false, errors.Wrapf(err, "[Store Restore] could not verify persisted access token")
		}
		if delErr := s.repo.Delete(s.storageKey); delErr != nil {
			log.Err(delErr).Msg("failed to remove unreadable session")
		}
		return false, errors.Wrapf(err, "[Store Restore] persisted access token is unreadable")
	}
	permissions := token.Permissions(claims, s.roles)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, errors.Wrapf(errors.ErrSessionClosed, "[Store Restore]")
	}
	s.epoch++
	s.apply(pair, claims, permissions)
	s.mu.Unlock()

	log.Info().Str("subject", claims.Subject).Time("saved_at", record.SavedAt).Msg("session restored")
	s.publish(Event{Type: EventRestore, Claims: claims})

	if expired || claims.Expired(s.nowTime()) {
		if err := s.Refresh(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Close destroys the session context. The persisted record is kept so a later
// context can Restore it.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.epoch++
	s.scheduler.Stop()
	s.mu.Unlock()

	s.subMu.Lock()
	s.subscribers = nil
	s.subMu.Unlock()
}

// Subscribe registers fn for every committed transition. Handlers run synchronously
// in registration order and must not block.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	sub := &subscriber{fn: fn}
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, existing := range s.subscribers {
				if existing == sub {
					s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.AccessToken != ""
}

func (s *Store) CheckPermission(permission string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions.Has(permission)
}

// AccessToken returns the current bearer token, empty when unauthenticated
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.AccessToken
}

// Claims returns the claims of the current access token, nil when unauthenticated
func (s *Store) Claims() *token.Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// Permissions returns the derived permission set, sorted
func (s *Store) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions.List()
}

// SchedulerState reports whether the refresh scheduler is running
func (s *Store) SchedulerState() refresh.State {
	return s.scheduler.State()
}

// apply must be called with mu held
func (s *Store) apply(pair token.Pair, claims *token.Claims, permissions token.PermissionSet) {
	s.pair = pair
	s.claims = claims
	s.permissions = permissions
	if pair.RefreshToken != "" {
		s.scheduler.Start()
	} else {
		s.scheduler.Stop()
	}
}

// clear must be called with mu held
func (s *Store) clear() (bool, error) {
	wasAuthenticated := s.pair.AccessToken != ""
	s.epoch++
	s.scheduler.Stop()
	s.pair = token.Pair{}
	s.claims = nil
	s.permissions = token.PermissionSet{}
	if err := s.repo.Delete(s.storageKey); err != nil {
		return wasAuthenticated, errors.Wrapf(err, "[Store Logout] failed to remove persisted session")
	}
	return wasAuthenticated, nil
}

func (s *Store) persist(pair token.Pair) error {
	return s.repo.Save(s.storageKey, &Record{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SavedAt:      s.nowTime().UTC(),
	})
}

func (s *Store) publish(event Event) {
	s.subMu.Lock()
	subscribers := make([]*subscriber, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.subMu.Unlock()

	for _, sub := range subscribers {
		sub.fn(event)
	}
}
