package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	presenceOnlineSetKey  = "ws:online_users"
	presenceLastSeenKeyNS = "ws:last_seen:"
	presenceTTL           = 90 * time.Second
	presenceOfflineGrace  = 5 * time.Second
	presenceReapInterval  = 60 * time.Second
)

// Presence tracks which users hold at least one notification socket. Local
// counts cover this process; Redis mirrors them so every instance agrees.
type Presence struct {
	rdb *redis.Client

	mu            sync.RWMutex
	local         map[uint]int
	offlineTimers map[uint]*time.Timer
	grace         time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresence starts the stale-entry reaper when rdb is non-nil.
func NewPresence(rdb *redis.Client) *Presence {
	p := &Presence{
		rdb:           rdb,
		local:         make(map[uint]int),
		offlineTimers: make(map[uint]*time.Timer),
		grace:         presenceOfflineGrace,
		stopCh:        make(chan struct{}),
	}
	if rdb != nil {
		go p.reaperLoop(presenceReapInterval)
	}
	return p
}

func (p *Presence) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.grace = d
	p.mu.Unlock()
}

func (p *Presence) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.mu.Lock()
		for userID, t := range p.offlineTimers {
			t.Stop()
			delete(p.offlineTimers, userID)
		}
		p.mu.Unlock()
	})
}

func (p *Presence) Register(ctx context.Context, userID uint) {
	p.mu.Lock()
	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
		delete(p.offlineTimers, userID)
	}
	p.local[userID]++
	p.mu.Unlock()

	p.Touch(ctx, userID)
}

// Touch refreshes the user's last-seen key.
func (p *Presence) Touch(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	pipe := p.rdb.TxPipeline()
	pipe.SAdd(ctx, presenceOnlineSetKey, uid)
	pipe.SetEx(ctx, lastSeenKey(userID), strconv.FormatInt(time.Now().Unix(), 10), presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "presence touch failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
}

// Unregister drops one local connection. The Redis entry goes after the
// grace period unless the user reconnects first.
func (p *Presence) Unregister(userID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := p.local[userID] - 1; n > 0 {
		p.local[userID] = n
		return
	}
	delete(p.local, userID)

	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
	}
	p.offlineTimers[userID] = time.AfterFunc(p.grace, func() {
		p.finalizeOffline(context.Background(), userID)
	})
}

// OnlineCount is the number of distinct users online across all instances.
func (p *Presence) OnlineCount(ctx context.Context) int {
	seen := make(map[uint]struct{})
	p.mu.RLock()
	for userID, n := range p.local {
		if n > 0 {
			seen[userID] = struct{}{}
		}
	}
	p.mu.RUnlock()

	if p.rdb != nil {
		members, err := p.rdb.SMembers(ctx, presenceOnlineSetKey).Result()
		if err == nil {
			for _, raw := range members {
				id, err := strconv.ParseUint(raw, 10, 32)
				if err != nil {
					continue
				}
				if exists, err := p.rdb.Exists(ctx, lastSeenKey(uint(id))).Result(); err == nil && exists > 0 {
					seen[uint(id)] = struct{}{}
				}
			}
		}
	}
	return len(seen)
}

// reapOnce removes set members whose last-seen key expired.
func (p *Presence) reapOnce(ctx context.Context) {
	if p.rdb == nil {
		return
	}
	members, err := p.rdb.SMembers(ctx, presenceOnlineSetKey).Result()
	if err != nil {
		return
	}
	for _, raw := range members {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			_ = p.rdb.SRem(ctx, presenceOnlineSetKey, raw).Err()
			continue
		}
		exists, err := p.rdb.Exists(ctx, lastSeenKey(uint(id))).Result()
		if err != nil || exists > 0 {
			continue
		}
		_ = p.rdb.SRem(ctx, presenceOnlineSetKey, raw).Err()
	}
}

func (p *Presence) reaperLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce(context.Background())
		}
	}
}

func (p *Presence) finalizeOffline(ctx context.Context, userID uint) {
	p.mu.Lock()
	delete(p.offlineTimers, userID)
	reconnected := p.local[userID] > 0
	p.mu.Unlock()
	if reconnected || p.rdb == nil {
		return
	}

	// A live last-seen key means another instance still holds a socket.
	if exists, err := p.rdb.Exists(ctx, lastSeenKey(userID)).Result(); err == nil && exists > 0 {
		return
	}
	_ = p.rdb.SRem(ctx, presenceOnlineSetKey, strconv.FormatUint(uint64(userID), 10)).Err()
}

func lastSeenKey(userID uint) string {
	return presenceLastSeenKeyNS + strconv.FormatUint(uint64(userID), 10)
}
