package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"time"

	"github.com/lac-hong-legacy/ecotale_api/model"
	log "github.com/sirupsen/logrus"
)

const (
	usersPath = "users"

	// MaxDisplayedAchievements bounds the showcase on a profile.
	MaxDisplayedAchievements = 3
)

var (
	ErrTooManyDisplayed  = errors.New("at most 3 achievements can be displayed")
	ErrNotUnlocked       = errors.New("achievement is not unlocked")
	ErrDuplicateDisplay  = errors.New("achievement listed more than once")
	ErrAlreadyRegistered = errors.New("profile already exists")
)

// ProfileUpdate lists the editable profile fields; nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	Institution *string
	Class       *string
	Photo       *string
}

// UserRepository handles users/{uid} documents
type UserRepository struct {
	BaseRepository
}

func NewUserRepository(store Store) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(store),
	}
}

func userPath(uid string, rest ...string) string {
	return Join(append([]string{usersPath, uid}, rest...)...)
}

func (r *UserRepository) Get(ctx context.Context, uid string) (*model.UserProfile, error) {
	var profile model.UserProfile
	found, err := r.store.Read(ctx, userPath(uid), &profile)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	profile.ID = uid
	return &profile, nil
}

// Create writes a new profile with zeroed counters and default preferences.
func (r *UserRepository) Create(ctx context.Context, uid, email, displayName string) (*model.UserProfile, error) {
	var existing map[string]interface{}
	found, err := r.store.Read(ctx, userPath(uid), &existing)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, ErrAlreadyRegistered
	}

	profile := &model.UserProfile{
		ID:          uid,
		DisplayName: displayName,
		Email:       email,
		Role:        "user",
		Preferences: model.Preferences{Theme: "light", Notifications: true},
		CreatedAt:   r.millis(),
	}
	if err := r.store.Create(ctx, userPath(uid), profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.UserProfile, error) {
	var all map[string]model.UserProfile
	if _, err := r.store.Read(ctx, usersPath, &all); err != nil {
		return nil, err
	}

	users := make([]model.UserProfile, 0, len(all))
	for uid, p := range all {
		p.ID = uid
		users = append(users, p)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt != users[j].CreatedAt {
			return users[i].CreatedAt < users[j].CreatedAt
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var all map[string]interface{}
	if _, err := r.store.Read(ctx, usersPath, &all); err != nil {
		return 0, err
	}
	return len(all), nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, uid string, upd ProfileUpdate) error {
	if err := r.mustExist(ctx, userPath(uid)); err != nil {
		return err
	}

	fields := map[string]interface{}{}
	setString := func(key string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			fields[key] = nil
			return
		}
		fields[key] = *v
	}
	if upd.DisplayName != nil && *upd.DisplayName != "" {
		fields["displayName"] = *upd.DisplayName
	}
	setString("bio", upd.Bio)
	setString("institution", upd.Institution)
	setString("class", upd.Class)
	setString("photo", upd.Photo)

	if len(fields) == 0 {
		return nil
	}
	return r.store.Update(ctx, userPath(uid), fields)
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, uid string, prefs model.Preferences) error {
	if err := r.mustExist(ctx, userPath(uid)); err != nil {
		return err
	}
	return r.store.Create(ctx, userPath(uid, "preferences"), prefs)
}

func (r *UserRepository) SetRole(ctx context.Context, uid, role string) error {
	if err := r.mustExist(ctx, userPath(uid)); err != nil {
		return err
	}
	return r.store.Update(ctx, userPath(uid), map[string]interface{}{"role": role})
}

func (r *UserRepository) Delete(ctx context.Context, uid string) error {
	return r.store.Delete(ctx, userPath(uid))
}

// GetCompletedStory looks up the completion record guarding a story against re-scoring.
func (r *UserRepository) GetCompletedStory(ctx context.Context, uid, storyID string) (*model.CompletedStory, bool, error) {
	var completed model.CompletedStory
	found, err := r.store.Read(ctx, userPath(uid, "completedStories", storyID), &completed)
	if err != nil || !found {
		return nil, false, err
	}
	return &completed, true, nil
}

// RecordCompletion credits a finished story: total score, completed counter and
// the completedStories entry, written as one multi-path update.
// The read of the current totals is not transactional.
func (r *UserRepository) RecordCompletion(ctx context.Context, uid, storyID string, completed model.CompletedStory) (*model.UserProfile, error) {
	profile, err := r.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	if completed.CompletedAt == 0 {
		completed.CompletedAt = r.millis()
	}
	profile.TotalScore += completed.Score
	profile.CompletedCount++
	if profile.CompletedStories == nil {
		profile.CompletedStories = map[string]model.CompletedStory{}
	}
	profile.CompletedStories[storyID] = completed

	err = r.store.Update(ctx, userPath(uid), map[string]interface{}{
		"totalScore":                    profile.TotalScore,
		"completedCount":                profile.CompletedCount,
		Join("completedStories", storyID): completed,
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UnlockAchievement writes the unlock timestamp once. It reports false when
// the achievement was already unlocked.
func (r *UserRepository) UnlockAchievement(ctx context.Context, uid, achievementID string) (bool, error) {
	path := userPath(uid, "achievements", "unlocked", achievementID)

	var at int64
	found, err := r.store.Read(ctx, path, &at)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	if err := r.store.Create(ctx, path, r.millis()); err != nil {
		return false, err
	}
	return true, nil
}

// SetDisplayedAchievements replaces the showcase. The list must hold at most
// three distinct, unlocked ids; otherwise nothing is written.
func (r *UserRepository) SetDisplayedAchievements(ctx context.Context, uid string, ids []string) error {
	if len(ids) > MaxDisplayedAchievements {
		return ErrTooManyDisplayed
	}

	profile, err := r.Get(ctx, uid)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return ErrDuplicateDisplay
		}
		seen[id] = true
		if !profile.HasUnlocked(id) {
			return ErrNotUnlocked
		}
	}

	if len(ids) == 0 {
		return r.store.Delete(ctx, userPath(uid, "achievements", "displayed"))
	}
	return r.store.Create(ctx, userPath(uid, "achievements", "displayed"), ids)
}

// RecordLogin maintains the consecutive-day login streak (UTC days).
func (r *UserRepository) RecordLogin(ctx context.Context, uid string) (int, error) {
	profile, err := r.Get(ctx, uid)
	if err != nil {
		return 0, err
	}

	now := r.now().UTC()
	today := now.Format(time.DateOnly)
	if profile.LastLoginDate == today {
		return profile.LoginStreak, nil
	}

	streak := 1
	if profile.LastLoginDate == now.AddDate(0, 0, -1).Format(time.DateOnly) {
		streak = profile.LoginStreak + 1
	}

	err = r.store.Update(ctx, userPath(uid), map[string]interface{}{
		"loginStreak":   streak,
		"lastLoginDate": today,
	})
	if err != nil {
		return 0, err
	}
	return streak, nil
}

func (r *UserRepository) SetBestRank(ctx context.Context, uid string, rank int) error {
	return r.store.Update(ctx, userPath(uid), map[string]interface{}{"bestRank": rank})
}

func deviceKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

func (r *UserRepository) AddDeviceToken(ctx context.Context, uid, token string) error {
	if err := r.mustExist(ctx, userPath(uid)); err != nil {
		return err
	}
	return r.store.Create(ctx, userPath(uid, "deviceTokens", deviceKey(token)), token)
}

func (r *UserRepository) RemoveDeviceToken(ctx context.Context, uid, token string) error {
	return r.store.Delete(ctx, userPath(uid, "deviceTokens", deviceKey(token)))
}

// Watch folds live updates of a profile into typed values. Updates that fail
// to decode are logged and skipped. The channel closes after stop or ctx end.
func (r *UserRepository) Watch(ctx context.Context, uid string) (<-chan model.UserProfile, func(), error) {
	sub, err := r.store.Subscribe(ctx, userPath(uid))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan model.UserProfile, 1)
	go func() {
		defer close(out)
		for snap := range sub.C {
			if !snap.Exists {
				continue
			}
			var profile model.UserProfile
			if err := snap.Decode(&profile); err != nil {
				log.WithError(err).WithField("uid", uid).Warn("Skipping malformed profile update")
				continue
			}
			profile.ID = uid
			select {
			case out <- profile:
			case <-ctx.Done():
				sub.Close()
				return
			}
		}
	}()

	return out, sub.Close, nil
}
