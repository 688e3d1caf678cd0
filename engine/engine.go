// Package engine is the client-side synchronization engine: it owns the
// duplex channel subscription, the conversation-switch data loader, and the
// wiring of inbound events into the message timeline, the notification
// queue, and the call signaling machine.
package engine

import (
	"context"
	"errors"
	"io"
	"sync"

	"chatbox/api"
	"chatbox/call"
	"chatbox/channel"
	"chatbox/models"
	"chatbox/notify"
	"chatbox/session"
	"chatbox/storage"
	"chatbox/store"
)

var (
	// ErrNotConnected indicates no duplex channel is bound yet.
	ErrNotConnected = errors.New("engine: channel not connected")
	// ErrNoConversation indicates no conversation is selected.
	ErrNoConversation = errors.New("engine: no conversation selected")
	// ErrPermissionDenied indicates the group snapshot denies the action.
	ErrPermissionDenied = errors.New("engine: permission denied")
	// ErrEmptyMessage rejects sending blank content.
	ErrEmptyMessage = errors.New("engine: message content is empty")
)

// Emitter is the outbound side of the duplex channel.
type Emitter interface {
	Emit(event string, payload any) error
	Close() error
}

// Directory is the request/response collaborator surface the engine uses.
// *api.Client satisfies it.
type Directory interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	PrivateHistory(ctx context.Context, peerID string) ([]channel.WireMessage, error)
	GroupHistory(ctx context.Context, groupID string) ([]channel.WireMessage, error)
	UploadFile(ctx context.Context, filename, mimeType string, content io.Reader) (models.FileDescriptor, error)
}

var _ Directory = (*api.Client)(nil)

// Options configures an Engine. Session, API, Timeline and Notifications are
// required; Cache and the On* hooks are optional.
type Options struct {
	Session       *session.Session
	API           Directory
	Timeline      *store.Timeline
	Notifications *notify.Queue
	Cache         *storage.Store

	// OnTimelineChanged fires after the timeline mutated for a conversation.
	OnTimelineChanged func(conversationKey string)
	// OnCallStateChanged fires after every call machine transition.
	OnCallStateChanged func(state call.State, sess call.Session)
	// OnIdentityResolved fires once the channel handshake names the user.
	OnIdentityResolved func(userID string)
}

// Engine orchestrates the conversation synchronization and call signaling
// for one authenticated session.
type Engine struct {
	opts Options

	mu            sync.RWMutex
	emitter       Emitter
	users         map[string]models.User
	groups        map[string]models.Group
	active        string
	activeIsGroup bool

	calls *call.Machine
}

// New validates the wiring and returns an idle engine.
func New(opts Options) (*Engine, error) {
	if opts.Session == nil {
		return nil, errors.New("engine: session is required")
	}
	if opts.API == nil {
		return nil, errors.New("engine: directory client is required")
	}
	if opts.Timeline == nil {
		return nil, errors.New("engine: timeline is required")
	}
	if opts.Notifications == nil {
		return nil, errors.New("engine: notification queue is required")
	}

	e := &Engine{
		opts:   opts,
		users:  make(map[string]models.User),
		groups: make(map[string]models.Group),
	}
	e.calls = call.New(callEmitter{engine: e})
	return e, nil
}

// Connect dials the duplex channel and binds it to the engine.
func (e *Engine) Connect(ctx context.Context, url string) error {
	client, err := channel.Dial(ctx, url, e.opts.Session.Token(), e.Handlers())
	if err != nil {
		return err
	}
	e.Bind(client)
	return nil
}

// Bind attaches an already-established outbound channel. Used by Connect and
// by tests.
func (e *Engine) Bind(emitter Emitter) {
	e.mu.Lock()
	e.emitter = emitter
	e.mu.Unlock()
}

// Close tears the channel down. The session itself is torn down by the
// caller on sign-out.
func (e *Engine) Close() error {
	e.mu.Lock()
	emitter := e.emitter
	e.emitter = nil
	e.mu.Unlock()

	if emitter == nil {
		return nil
	}
	return emitter.Close()
}

// RefreshDirectory fetches the user and group snapshots. Permission checks
// always read the latest snapshot, never a cached evaluation.
func (e *Engine) RefreshDirectory(ctx context.Context) error {
	users, err := e.opts.API.ListUsers(ctx)
	if err != nil {
		return err
	}
	groups, err := e.opts.API.ListGroups(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.users = make(map[string]models.User, len(users))
	for _, u := range users {
		e.users[u.ID] = u
	}
	e.groups = make(map[string]models.Group, len(groups))
	for _, g := range groups {
		e.groups[g.ID] = g
	}
	e.mu.Unlock()
	return nil
}

// UpdateGroup installs a fresh group snapshot, e.g. after a management call
// returned the updated group.
func (e *Engine) UpdateGroup(group models.Group) {
	e.mu.Lock()
	e.groups[group.ID] = group
	e.mu.Unlock()
}

// User returns a directory entry by id.
func (e *Engine) User(id string) (models.User, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	u, ok := e.users[id]
	return u, ok
}

// Group returns a group snapshot by id.
func (e *Engine) Group(id string) (models.Group, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.groups[id]
	return g, ok
}

// Active returns the selected conversation key and whether it is a group.
func (e *Engine) Active() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active, e.activeIsGroup
}

// CallState exposes the call machine position for rendering.
func (e *Engine) CallState() (call.State, call.Session) {
	state := e.calls.State()
	sess, _ := e.calls.Session()
	return state, sess
}

func (e *Engine) emit(event string, payload any) error {
	e.mu.RLock()
	emitter := e.emitter
	e.mu.RUnlock()

	if emitter == nil {
		return ErrNotConnected
	}
	return emitter.Emit(event, payload)
}

func (e *Engine) senderName(id, wireName string) string {
	if wireName != "" {
		return wireName
	}
	if u, ok := e.User(id); ok {
		return u.Name
	}
	return ""
}

func (e *Engine) notifyTimeline(conversationKey string) {
	if e.opts.OnTimelineChanged != nil {
		e.opts.OnTimelineChanged(conversationKey)
	}
}

func (e *Engine) notifyCallState() {
	if e.opts.OnCallStateChanged != nil {
		sess, _ := e.calls.Session()
		e.opts.OnCallStateChanged(e.calls.State(), sess)
	}
}
