package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/futig/rag-backend/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	inactiveUserTTL = time.Hour
	cleanupInterval = 10 * time.Minute
	warningInterval = 30 * time.Second
)

// userLimit tracks rate limit state for a single user
type userLimit struct {
	mu            sync.Mutex
	tokens        float64
	lastRefill    time.Time
	warningsSent  int
	lastWarningAt time.Time
}

// RateLimiterMiddleware implements token bucket rate limiting per user.
// Buckets live in a TTL cache so users that stay idle for an hour are forgotten.
type RateLimiterMiddleware struct {
	limits     *cache.Cache
	createMu   sync.Mutex
	maxTokens  float64
	refillRate float64 // tokens per second
	logger     *zap.Logger
	sender     Sender
	now        func() time.Time
}

// NewRateLimiterMiddleware creates a new rate limiter middleware.
// burstSize caps the bucket; when it is not positive the bucket holds a full minute of requests.
func NewRateLimiterMiddleware(
	requestsPerMinute int,
	burstSize int,
	logger *zap.Logger,
	sender Sender,
) *RateLimiterMiddleware {
	maxTokens := float64(burstSize)
	if burstSize <= 0 {
		maxTokens = float64(requestsPerMinute)
	}

	return &RateLimiterMiddleware{
		limits:     cache.New(inactiveUserTTL, cleanupInterval),
		maxTokens:  maxTokens,
		refillRate: float64(requestsPerMinute) / 60.0,
		logger:     logger,
		sender:     sender,
		now:        time.Now,
	}
}

// Handle processes the update through rate limiting
func (rl *RateLimiterMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	userID, chatID, ok := updateSource(update)
	if !ok {
		next(update)
		return
	}

	allowed, warning := rl.allowRequest(userID)
	if !allowed {
		rl.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", chatID),
		)
		if warning > 0 {
			rl.sendRateLimitWarning(chatID, warning)
		}
		return
	}

	next(update)
}

// allowRequest takes a token from the user's bucket. When the bucket is empty it reports
// which warning to send, or zero if one was sent recently.
func (rl *RateLimiterMiddleware) allowRequest(userID int64) (bool, int) {
	limit := rl.bucket(userID)

	limit.mu.Lock()
	defer limit.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(limit.lastRefill).Seconds()
	limit.tokens = min(limit.tokens+elapsed*rl.refillRate, rl.maxTokens)
	limit.lastRefill = now

	if limit.tokens >= 1.0 {
		limit.tokens -= 1.0
		limit.warningsSent = 0
		return true, 0
	}

	if now.Sub(limit.lastWarningAt) <= warningInterval {
		return false, 0
	}
	limit.warningsSent++
	limit.lastWarningAt = now
	return false, limit.warningsSent
}

func (rl *RateLimiterMiddleware) bucket(userID int64) *userLimit {
	key := strconv.FormatInt(userID, 10)

	rl.createMu.Lock()
	defer rl.createMu.Unlock()

	limit, ok := rl.limits.Get(key)
	if !ok {
		limit = &userLimit{
			tokens:     rl.maxTokens,
			lastRefill: rl.now(),
		}
	}
	// Refresh the TTL on every request.
	rl.limits.SetDefault(key, limit)
	return limit.(*userLimit)
}

func (rl *RateLimiterMiddleware) sendRateLimitWarning(chatID int64, warningCount int) {
	if rl.sender == nil {
		return
	}
	msg := tgbotapi.NewMessage(chatID, render.RenderRateLimitWarning(warningCount))
	if _, err := rl.sender.Send(msg); err != nil {
		rl.logger.Error("failed to send rate limit warning",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}
