package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/metadata"
	"github.com/linkstash/linkstash/internal/mutation"
	"github.com/linkstash/linkstash/internal/pager"
	"github.com/linkstash/linkstash/internal/sharelink"
	"github.com/linkstash/linkstash/internal/store"
)

type Deps struct {
	Logger            logger.Logger
	StartTime         time.Time
	Version           string
	Commit            string
	BuildDate         string
	GoVersion         string
	TimeNow           func() time.Time      // for testing, defaults to time.Now
	AllowedHosts      []string              // Host headers allowed to access the server (empty = any)
	AllowedCIDRS      []string              // IPs allowed to access healthz/readyz endpoints
	TrustProxy        bool                  // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Store             store.Remote          // Durable link store
	RedisClient       *redis.Client         // Redis client connection (dedup cache, open counters)
	Engine            *mutation.Engine      // Optimistic mutation engine
	Pagers            *pager.Registry       // Per-owner collection loaders
	Mailbox           *sharelink.Mailbox    // Share-intent mailbox
	Coordinator       *metadata.Coordinator // Metadata enrichment coordinator
	ForegroundTrigger chan struct{}         // Channel to trigger a metadata retry sweep
	PageSize          int                   // Links per collection page
}
