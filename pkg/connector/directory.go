// Copyright 2026 Tedrolin

package connector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tedrolin/mautrix-wechatpc/pkg/wechatpc"
)

// ErrRosterUnavailable is returned when a refresh completes without
// populating the roster. Callers must retry or abort their own
// operation.
var ErrRosterUnavailable = errors.New("wechat roster unavailable")

// groupNameSeparator joins member display names when synthesizing a
// name for an unnamed chat room.
const groupNameSeparator = "、"

// rosterWaitTimeout bounds how long a refresh waits for the hook server
// to deliver the roster.
const rosterWaitTimeout = 30 * time.Second

// ChatEntry is one resolved chat in the directory.
type ChatEntry struct {
	ID      string
	Name    string
	IsGroup bool
	// MemberIDs is only populated for groups whose name was synthesized
	// from the member list.
	MemberIDs []string
}

// Directory caches the roster of known contacts and chat rooms. The
// roster arrives asynchronously from the hook server, so a refresh
// sends a request and blocks until SetRoster delivers the result.
// Concurrent refreshes coalesce into a single in-flight fetch.
type Directory struct {
	log     zerolog.Logger
	request func(ctx context.Context) error

	sf singleflight.Group

	mu        sync.RWMutex
	contacts  map[string]wechatpc.Contact
	chats     []*ChatEntry
	chatsByID map[string]*ChatEntry
	delivered chan struct{}
}

// NewDirectory creates an empty directory. request asks the transport
// to send the roster; the reply must be routed to SetRoster.
func NewDirectory(log zerolog.Logger, request func(ctx context.Context) error) *Directory {
	return &Directory{
		log:       log,
		request:   request,
		delivered: make(chan struct{}),
	}
}

func (d *Directory) populated() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.contacts) > 0
}

// Refresh repopulates the directory from the hook server. Overlapping
// calls share one underlying fetch and all complete when it does.
func (d *Directory) Refresh(ctx context.Context) error {
	_, err, _ := d.sf.Do("roster", func() (any, error) {
		d.mu.Lock()
		d.delivered = make(chan struct{})
		delivered := d.delivered
		d.mu.Unlock()

		d.log.Debug().Msg("Requesting roster from hook server")
		if err := d.request(ctx); err != nil {
			return nil, err
		}

		timer := time.NewTimer(rosterWaitTimeout)
		defer timer.Stop()
		select {
		case <-delivered:
		case <-timer.C:
			return nil, ErrRosterUnavailable
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if !d.populated() {
			return nil, ErrRosterUnavailable
		}
		return nil, nil
	})
	return err
}

// ensure triggers a refresh when the directory is empty. Concurrent
// callers on an empty directory still cause exactly one fetch.
func (d *Directory) ensure(ctx context.Context) error {
	if d.populated() {
		return nil
	}
	d.log.Debug().Msg("Directory is empty, fetching roster")
	return d.Refresh(ctx)
}

// Get returns the chat with the given id, or nil if the roster does
// not contain it.
func (d *Directory) Get(ctx context.Context, id string) (*ChatEntry, error) {
	if err := d.ensure(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.chatsByID[id], nil
}

// List returns all resolved chats in roster order.
func (d *Directory) List(ctx context.Context) ([]*ChatEntry, error) {
	if err := d.ensure(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	chats := make([]*ChatEntry, len(d.chats))
	copy(chats, d.chats)
	return chats, nil
}

// Contact returns the raw roster record for a wxid.
func (d *Directory) Contact(wxid string) (wechatpc.Contact, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.contacts[wxid]
	return c, ok
}

// resolveContactName applies the display name preference chain:
// username, then nickname, then the raw wxid.
func resolveContactName(c wechatpc.Contact) string {
	if c.Username != "" {
		return c.Username
	}
	if c.Nickname != "" {
		return c.Nickname
	}
	return c.Wxid
}

// SetRoster rebuilds the directory from a delivered roster and wakes
// every waiter of the in-flight refresh. The rebuild is two-pass:
// direct chats and the id map first, then groups, so synthesized group
// names can resolve members indexed in the first pass.
func (d *Directory) SetRoster(roster []wechatpc.Contact) {
	contacts := make(map[string]wechatpc.Contact, len(roster))
	var chats []*ChatEntry
	chatsByID := make(map[string]*ChatEntry, len(roster))

	for _, c := range roster {
		contacts[c.Wxid] = c
		if IsRoomWxid(c.Wxid) {
			continue
		}
		entry := &ChatEntry{ID: c.Wxid, Name: resolveContactName(c)}
		chats = append(chats, entry)
		chatsByID[c.Wxid] = entry
	}

	for _, c := range roster {
		if !IsRoomWxid(c.Wxid) {
			continue
		}
		entry := &ChatEntry{ID: c.Wxid, IsGroup: true, Name: resolveContactName(c)}
		if c.Username == "" && c.Nickname == "" && c.RoomWxidList != "" {
			memberIDs := strings.Split(c.RoomWxidList, "^G")
			if len(memberIDs) <= 1 {
				// A room with a single listed member has no usable
				// name; the original roster handling skips it.
				continue
			}
			var names []string
			for _, wxid := range memberIDs {
				member, ok := contacts[wxid]
				if !ok {
					continue
				}
				name := member.Username
				if name == "" {
					name = member.Nickname
				}
				names = append(names, name)
			}
			synthesized := strings.Join(names, groupNameSeparator)
			if synthesized != "" {
				entry.Name = synthesized
			}
			entry.MemberIDs = memberIDs
		}
		chats = append(chats, entry)
		chatsByID[c.Wxid] = entry
	}

	d.mu.Lock()
	d.contacts = contacts
	d.chats = chats
	d.chatsByID = chatsByID
	delivered := d.delivered
	d.mu.Unlock()

	select {
	case <-delivered:
	default:
		close(delivered)
	}

	d.log.Debug().
		Int("contacts", len(contacts)).
		Int("chats", len(chats)).
		Msg("Roster rebuilt")
}
