package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	LEADERBOARD_SVC = "leaderboard_svc"

	leaderboardKey          = "leaderboard:total"
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

// LeaderboardService mirrors every user's total score into a Redis sorted set.
type LeaderboardService struct {
	appContext.DefaultService

	redis *redis.Client
	users *repositories.UserRepository
}

func NewLeaderboardService(client *redis.Client, users *repositories.UserRepository) *LeaderboardService {
	return &LeaderboardService{redis: client, users: users}
}

func (svc LeaderboardService) Id() string {
	return LEADERBOARD_SVC
}

func (svc *LeaderboardService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *LeaderboardService) Start() error {
	svc.redis = svc.Service(REDIS_SVC).(*RedisService).GetClient()
	svc.users = svc.Service(STORE_SVC).(*StoreService).Users()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	exists, err := svc.redis.Exists(ctx, leaderboardKey).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		n, err := svc.Rebuild(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to build leaderboard")
			return nil
		}
		log.WithField("users", n).Info("Leaderboard built from store")
	}
	return nil
}

// Update stores a user's total score. Users without points are not ranked.
func (svc *LeaderboardService) Update(ctx context.Context, uid string, totalScore int) error {
	if totalScore <= 0 {
		return svc.Remove(ctx, uid)
	}
	return svc.redis.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(totalScore), Member: uid}).Err()
}

func (svc *LeaderboardService) Remove(ctx context.Context, uid string) error {
	return svc.redis.ZRem(ctx, leaderboardKey, uid).Err()
}

// Rank returns the competition rank of a user: one more than the number of
// users with a strictly higher score.
func (svc *LeaderboardService) Rank(ctx context.Context, uid string) (int, bool, error) {
	score, err := svc.redis.ZScore(ctx, leaderboardKey, uid).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	higher, err := svc.redis.ZCount(ctx, leaderboardKey, "("+strconv.FormatFloat(score, 'f', -1, 64), "+inf").Result()
	if err != nil {
		return 0, false, err
	}
	return int(higher) + 1, true, nil
}

// Top returns the best entries and, when uid is set, the caller's own entry.
func (svc *LeaderboardService) Top(ctx context.Context, limit int, uid string) (*dto.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	members, err := svc.redis.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	total, err := svc.redis.ZCard(ctx, leaderboardKey).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, len(members))
	for i, m := range members {
		rank := i + 1
		if i > 0 && m.Score == members[i-1].Score {
			rank = entries[i-1].Rank
		}
		entries[i] = dto.LeaderboardEntry{
			Rank:       rank,
			UserID:     m.Member.(string),
			TotalScore: int(m.Score),
		}
	}

	if err := svc.hydrate(ctx, entries); err != nil {
		return nil, err
	}

	resp := &dto.LeaderboardResponse{Entries: entries, Total: total}

	if uid != "" {
		for i := range entries {
			if entries[i].UserID == uid {
				entry := entries[i]
				resp.UserEntry = &entry
				break
			}
		}
		if resp.UserEntry == nil {
			rank, ok, err := svc.Rank(ctx, uid)
			if err != nil {
				return nil, err
			}
			if ok {
				own := []dto.LeaderboardEntry{{Rank: rank, UserID: uid}}
				if err := svc.hydrate(ctx, own); err != nil {
					return nil, err
				}
				resp.UserEntry = &own[0]
			}
		}
	}

	return resp, nil
}

// hydrate fills display names from profiles, a few lookups at a time.
func (svc *LeaderboardService) hydrate(ctx context.Context, entries []dto.LeaderboardEntry) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i := range entries {
		i := i
		g.Go(func() error {
			profile, err := svc.users.Get(gctx, entries[i].UserID)
			if errors.Is(err, repositories.ErrNotFound) {
				entries[i].DisplayName = "Unknown player"
				return nil
			}
			if err != nil {
				return err
			}
			entries[i].DisplayName = profile.DisplayName
			entries[i].Institution = profile.Institution
			if entries[i].TotalScore == 0 {
				entries[i].TotalScore = profile.TotalScore
			}
			return nil
		})
	}
	return g.Wait()
}

// Rebuild replaces the sorted set with the scores currently in the store.
func (svc *LeaderboardService) Rebuild(ctx context.Context) (int, error) {
	users, err := svc.users.List(ctx)
	if err != nil {
		return 0, err
	}

	members := make([]redis.Z, 0, len(users))
	for _, u := range users {
		if u.TotalScore > 0 {
			members = append(members, redis.Z{Score: float64(u.TotalScore), Member: u.ID})
		}
	}

	pipe := svc.redis.TxPipeline()
	pipe.Del(ctx, leaderboardKey)
	if len(members) > 0 {
		pipe.ZAdd(ctx, leaderboardKey, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(members), nil
}
