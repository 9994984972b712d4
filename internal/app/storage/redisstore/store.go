// Package redisstore implements the storage interfaces on top of Redis.
//
// Records are stored as JSON strings under "<prefix>:<kind>:<id>" and indexed
// by a sorted set per kind. Uniqueness rules (usernames, one plan per user and
// week) are enforced with HSETNX on dedicated hashes.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/domain/invitation"
	"github.com/freetime-planner/freetime/internal/app/domain/plan"
	"github.com/freetime-planner/freetime/internal/app/domain/profile"
	"github.com/freetime-planner/freetime/internal/app/storage"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "freetime"

const (
	kindIdea       = "idea"
	kindProfile    = "profile"
	kindPlan       = "plan"
	kindInvitation = "invitation"
)

// Store persists records in Redis.
type Store struct {
	client *redis.Client
	prefix string
}

var _ storage.IdeaStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)
var _ storage.PlanStore = (*Store)(nil)
var _ storage.InvitationStore = (*Store)(nil)

// New wraps an existing client. An empty prefix falls back to DefaultPrefix.
func New(client *redis.Client, prefix string) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// --- keys -------------------------------------------------------------------

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) recordKey(kind string, id int64) string {
	return s.key(kind, strconv.FormatInt(id, 10))
}

func (s *Store) indexKey(kind string) string   { return s.key(kind, "index") }
func (s *Store) sequenceKey(kind string) string { return s.key("seq", kind) }
func (s *Store) usernamesKey() string           { return s.key(kindProfile, "usernames") }

func (s *Store) userIdeasKey(userID int64) string {
	return s.key("user", strconv.FormatInt(userID, 10), "ideas")
}

func (s *Store) userPlansKey(userID int64) string {
	return s.key("user", strconv.FormatInt(userID, 10), "plans")
}

func (s *Store) followingKey(id int64) string {
	return s.key(kindProfile, strconv.FormatInt(id, 10), "following")
}

func (s *Store) followersKey(id int64) string {
	return s.key(kindProfile, strconv.FormatInt(id, 10), "followers")
}

// --- record helpers ---------------------------------------------------------

// maxTxAttempts bounds optimistic transaction retries after a watched key
// changed underneath us.
const maxTxAttempts = 16

// reader is the read side shared by *redis.Client and *redis.Tx.
type reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

type claimer interface {
	HSetNX(ctx context.Context, key, field string, value interface{}) *redis.BoolCmd
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, storage.ErrNotFound)
}

// wrapErr annotates backend failures and passes storage sentinels through.
func wrapErr(err error, format string, args ...interface{}) error {
	if err == nil || errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConflict) {
		return err
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func (s *Store) nextID(ctx context.Context, kind string) (int64, error) {
	id, err := s.client.Incr(ctx, s.sequenceKey(kind)).Result()
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", kind, err)
	}
	return id, nil
}

func (s *Store) load(ctx context.Context, r reader, kind string, id int64, dst interface{}) error {
	raw, err := r.Get(ctx, s.recordKey(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return notFound(kind, id)
	}
	if err != nil {
		return fmt.Errorf("load %s %d: %w", kind, id, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s %d: %w", kind, id, err)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, r reader, kind string, id int64) error {
	n, err := r.Exists(ctx, s.recordKey(kind, id)).Result()
	if err != nil {
		return fmt.Errorf("lookup %s %d: %w", kind, id, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// put queues the record write and its index entry on pipe.
func (s *Store) put(ctx context.Context, pipe redis.Pipeliner, kind string, id int64, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %d: %w", kind, id, err)
	}
	pipe.Set(ctx, s.recordKey(kind, id), raw, 0)
	pipe.ZAdd(ctx, s.indexKey(kind), &redis.Z{Score: float64(id), Member: id})
	return nil
}

// drop queues removal of the record and its index entry. The returned
// command reports how many record keys were deleted once the pipeline ran.
func (s *Store) drop(ctx context.Context, pipe redis.Pipeliner, kind string, id int64) *redis.IntCmd {
	deleted := pipe.Del(ctx, s.recordKey(kind, id))
	pipe.ZRem(ctx, s.indexKey(kind), id)
	return deleted
}

func (s *Store) write(ctx context.Context, fn func(redis.Pipeliner) error) error {
	_, err := s.client.TxPipelined(ctx, fn)
	return err
}

// watch runs fn with keys under WATCH. fn must queue its writes with
// tx.TxPipelined so they are discarded when a watched key changed, in which
// case fn is run again from the start.
func (s *Store) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("watch %s: %w", strings.Join(keys, ","), redis.TxFailedErr)
}

// removeRecord deletes one record inside a watched transaction. extra queues
// the secondary index cleanup for the loaded record.
func removeRecord[T any](ctx context.Context, s *Store, kind string, id int64, extra func(pipe redis.Pipeliner, rec T)) error {
	err := s.watch(ctx, func(tx *redis.Tx) error {
		var rec T
		if err := s.load(ctx, tx, kind, id, &rec); err != nil {
			return err
		}
		var deleted *redis.IntCmd
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			deleted = s.drop(ctx, pipe, kind, id)
			if extra != nil {
				extra(pipe, rec)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if deleted.Val() != 1 {
			return notFound(kind, id)
		}
		return nil
	}, s.recordKey(kind, id))
	return wrapErr(err, "delete %s %d", kind, id)
}

// loadMany fetches the records for ids in order, skipping ids whose record
// has vanished between the index read and the fetch.
func loadMany[T any](ctx context.Context, s *Store, kind string, ids []int64) ([]T, error) {
	result := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(kind, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s records: %w", kind, err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode %s %d: %w", kind, ids[i], err)
		}
		result = append(result, rec)
	}
	return result, nil
}

func loadIndexed[T any](ctx context.Context, s *Store, kind string) ([]T, error) {
	ids, err := s.sortedIDs(ctx, s.indexKey(kind))
	if err != nil {
		return nil, err
	}
	return loadMany[T](ctx, s, kind, ids)
}

func (s *Store) sortedIDs(ctx context.Context, key string) ([]int64, error) {
	members, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return parseIDs(members)
}

func (s *Store) setIDs(ctx context.Context, r reader, key string) ([]int64, error) {
	members, err := r.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	ids, err := parseIDs(members)
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

func parseIDs(members []string) ([]int64, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func filter[T any](records []T, keep func(T) bool) []T {
	result := make([]T, 0, len(records))
	for _, rec := range records {
		if keep(rec) {
			result = append(result, rec)
		}
	}
	return result
}

// --- IdeaStore --------------------------------------------------------------

func (s *Store) CreateIdea(ctx context.Context, userID int64, in idea.Input) (idea.Idea, error) {
	id, err := s.nextID(ctx, kindIdea)
	if err != nil {
		return idea.Idea{}, err
	}
	now := time.Now().UTC()
	rec := idea.Idea{
		ID:        id,
		UserID:    userID,
		Title:     in.Title,
		Category:  in.Category,
		Tags:      tagsOrEmpty(in.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.write(ctx, func(pipe redis.Pipeliner) error {
		if err := s.put(ctx, pipe, kindIdea, id, rec); err != nil {
			return err
		}
		pipe.ZAdd(ctx, s.userIdeasKey(userID), &redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return idea.Idea{}, fmt.Errorf("create idea: %w", err)
	}
	return rec, nil
}

func (s *Store) UpdateIdea(ctx context.Context, id int64, in idea.Input) (idea.Idea, error) {
	var rec idea.Idea
	err := s.watch(ctx, func(tx *redis.Tx) error {
		if err := s.load(ctx, tx, kindIdea, id, &rec); err != nil {
			return err
		}
		rec.Title = in.Title
		rec.Category = in.Category
		rec.Tags = tagsOrEmpty(in.Tags)
		rec.UpdatedAt = time.Now().UTC()
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return s.put(ctx, pipe, kindIdea, id, rec)
		})
		return err
	}, s.recordKey(kindIdea, id))
	if err != nil {
		return idea.Idea{}, wrapErr(err, "update idea %d", id)
	}
	return rec, nil
}

func (s *Store) GetIdea(ctx context.Context, id int64) (idea.Idea, error) {
	var rec idea.Idea
	if err := s.load(ctx, s.client, kindIdea, id, &rec); err != nil {
		return idea.Idea{}, err
	}
	return rec, nil
}

func (s *Store) ListIdeas(ctx context.Context) ([]idea.Idea, error) {
	return loadIndexed[idea.Idea](ctx, s, kindIdea)
}

func (s *Store) ListIdeasByCategory(ctx context.Context, category string) ([]idea.Idea, error) {
	all, err := s.ListIdeas(ctx)
	if err != nil {
		return nil, err
	}
	return filter(all, func(rec idea.Idea) bool { return rec.Category == category }), nil
}

func (s *Store) ListIdeasByTags(ctx context.Context, tags []string) ([]idea.Idea, error) {
	all, err := s.ListIdeas(ctx)
	if err != nil {
		return nil, err
	}
	return filter(all, func(rec idea.Idea) bool { return rec.HasTags(tags) }), nil
}

func (s *Store) ListIdeasByUser(ctx context.Context, userID int64) ([]idea.Idea, error) {
	ids, err := s.sortedIDs(ctx, s.userIdeasKey(userID))
	if err != nil {
		return nil, err
	}
	return loadMany[idea.Idea](ctx, s, kindIdea, ids)
}

func (s *Store) DeleteIdea(ctx context.Context, id int64) error {
	return removeRecord(ctx, s, kindIdea, id, func(pipe redis.Pipeliner, rec idea.Idea) {
		pipe.ZRem(ctx, s.userIdeasKey(rec.UserID), id)
	})
}

// --- ProfileStore -----------------------------------------------------------

func (s *Store) CreateProfile(ctx context.Context, in profile.Input) (profile.Profile, error) {
	id, err := s.nextID(ctx, kindProfile)
	if err != nil {
		return profile.Profile{}, err
	}
	if err := s.claimUsername(ctx, s.client, in.Username, id); err != nil {
		return profile.Profile{}, err
	}

	now := time.Now().UTC()
	rec := profile.Profile{
		ID:        id,
		Username:  in.Username,
		Bio:       in.Bio,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.write(ctx, func(pipe redis.Pipeliner) error {
		return s.put(ctx, pipe, kindProfile, id, rec)
	})
	if err != nil {
		s.client.HDel(ctx, s.usernamesKey(), in.Username)
		return profile.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return s.withIdeaIDs(ctx, rec)
}

func (s *Store) UpdateProfile(ctx context.Context, id int64, in profile.Input) (profile.Profile, error) {
	var rec profile.Profile
	err := s.watch(ctx, func(tx *redis.Tx) error {
		if err := s.load(ctx, tx, kindProfile, id, &rec); err != nil {
			return err
		}
		previous := rec.Username
		renamed := in.Username != previous
		if renamed {
			if err := s.claimUsername(ctx, tx, in.Username, id); err != nil {
				return err
			}
		}

		rec.Username = in.Username
		rec.Bio = in.Bio
		rec.IdeaIDs = nil
		rec.UpdatedAt = time.Now().UTC()
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if renamed {
				pipe.HDel(ctx, s.usernamesKey(), previous)
			}
			return s.put(ctx, pipe, kindProfile, id, rec)
		})
		if err != nil && renamed {
			s.client.HDel(ctx, s.usernamesKey(), in.Username)
		}
		return err
	}, s.recordKey(kindProfile, id))
	if err != nil {
		return profile.Profile{}, wrapErr(err, "update profile %d", id)
	}
	return s.withIdeaIDs(ctx, rec)
}

func (s *Store) claimUsername(ctx context.Context, c claimer, username string, id int64) error {
	claimed, err := c.HSetNX(ctx, s.usernamesKey(), username, id).Result()
	if err != nil {
		return fmt.Errorf("claim username %q: %w", username, err)
	}
	if !claimed {
		return fmt.Errorf("username %q: %w", username, storage.ErrConflict)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id int64) (profile.Profile, error) {
	var rec profile.Profile
	if err := s.load(ctx, s.client, kindProfile, id, &rec); err != nil {
		return profile.Profile{}, err
	}
	return s.withIdeaIDs(ctx, rec)
}

func (s *Store) GetProfileByUsername(ctx context.Context, username string) (profile.Profile, error) {
	raw, err := s.client.HGet(ctx, s.usernamesKey(), username).Result()
	if errors.Is(err, redis.Nil) {
		return profile.Profile{}, fmt.Errorf("profile %q: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("lookup username %q: %w", username, err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("parse id for %q: %w", username, err)
	}
	return s.GetProfile(ctx, id)
}

func (s *Store) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	records, err := loadIndexed[profile.Profile](ctx, s, kindProfile)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i], err = s.withIdeaIDs(ctx, records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) ListProfileIdeaIDs(ctx context.Context, id int64) ([]int64, error) {
	if err := s.exists(ctx, s.client, kindProfile, id); err != nil {
		return nil, err
	}
	return s.sortedIDs(ctx, s.userIdeasKey(id))
}

// DeleteProfile removes the profile, releases its username and detaches every
// follow edge touching it. The edge sets are watched so a concurrent follow
// cannot leave a dangling edge.
func (s *Store) DeleteProfile(ctx context.Context, id int64) error {
	err := s.watch(ctx, func(tx *redis.Tx) error {
		var rec profile.Profile
		if err := s.load(ctx, tx, kindProfile, id, &rec); err != nil {
			return err
		}
		following, err := s.setIDs(ctx, tx, s.followingKey(id))
		if err != nil {
			return err
		}
		followers, err := s.setIDs(ctx, tx, s.followersKey(id))
		if err != nil {
			return err
		}
		var deleted *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			deleted = s.drop(ctx, pipe, kindProfile, id)
			pipe.HDel(ctx, s.usernamesKey(), rec.Username)
			for _, other := range following {
				pipe.SRem(ctx, s.followersKey(other), id)
			}
			for _, other := range followers {
				pipe.SRem(ctx, s.followingKey(other), id)
			}
			pipe.Del(ctx, s.followingKey(id), s.followersKey(id))
			return nil
		})
		if err != nil {
			return err
		}
		if deleted.Val() != 1 {
			return notFound(kindProfile, id)
		}
		return nil
	}, s.recordKey(kindProfile, id), s.followingKey(id), s.followersKey(id))
	return wrapErr(err, "delete profile %d", id)
}

func (s *Store) Follow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	return s.changeEdge(ctx, followerID, followeeID, func(pipe redis.Pipeliner) *redis.IntCmd {
		added := pipe.SAdd(ctx, s.followingKey(followerID), followeeID)
		pipe.SAdd(ctx, s.followersKey(followeeID), followerID)
		return added
	})
}

func (s *Store) Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	return s.changeEdge(ctx, followerID, followeeID, func(pipe redis.Pipeliner) *redis.IntCmd {
		removed := pipe.SRem(ctx, s.followingKey(followerID), followeeID)
		pipe.SRem(ctx, s.followersKey(followeeID), followerID)
		return removed
	})
}

// changeEdge applies an edge mutation while both profile records are
// watched, so the edge is never written for a profile deleted meanwhile.
func (s *Store) changeEdge(ctx context.Context, followerID, followeeID int64, queue func(redis.Pipeliner) *redis.IntCmd) (bool, error) {
	var changed bool
	err := s.watch(ctx, func(tx *redis.Tx) error {
		for _, id := range []int64{followerID, followeeID} {
			if err := s.exists(ctx, tx, kindProfile, id); err != nil {
				return err
			}
		}
		var cmd *redis.IntCmd
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			cmd = queue(pipe)
			return nil
		})
		if err != nil {
			return err
		}
		changed = cmd.Val() > 0
		return nil
	}, s.recordKey(kindProfile, followerID), s.recordKey(kindProfile, followeeID))
	if err != nil {
		return false, wrapErr(err, "edge %d -> %d", followerID, followeeID)
	}
	return changed, nil
}

func (s *Store) ListFollowers(ctx context.Context, id int64) ([]int64, error) {
	if err := s.exists(ctx, s.client, kindProfile, id); err != nil {
		return nil, err
	}
	return s.setIDs(ctx, s.client, s.followersKey(id))
}

func (s *Store) ListFollowing(ctx context.Context, id int64) ([]int64, error) {
	if err := s.exists(ctx, s.client, kindProfile, id); err != nil {
		return nil, err
	}
	return s.setIDs(ctx, s.client, s.followingKey(id))
}

func (s *Store) withIdeaIDs(ctx context.Context, rec profile.Profile) (profile.Profile, error) {
	ids, err := s.sortedIDs(ctx, s.userIdeasKey(rec.ID))
	if err != nil {
		return profile.Profile{}, err
	}
	rec.IdeaIDs = ids
	return rec, nil
}

// --- PlanStore --------------------------------------------------------------

func (s *Store) CreatePlan(ctx context.Context, userID int64, in plan.Input) (plan.WeeklyPlan, error) {
	id, err := s.nextID(ctx, kindPlan)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}
	if err := s.claimWeek(ctx, s.client, userID, in.WeekStartDate, id); err != nil {
		return plan.WeeklyPlan{}, err
	}

	now := time.Now().UTC()
	rec := plan.WeeklyPlan{
		ID:            id,
		UserID:        userID,
		WeekStartDate: in.WeekStartDate,
		WeekEndDate:   in.WeekEndDate,
		IdeaIDs:       idsOrEmpty(in.IdeaIDs),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.write(ctx, func(pipe redis.Pipeliner) error {
		return s.put(ctx, pipe, kindPlan, id, rec)
	})
	if err != nil {
		s.client.HDel(ctx, s.userPlansKey(userID), in.WeekStartDate)
		return plan.WeeklyPlan{}, fmt.Errorf("create plan: %w", err)
	}
	return rec, nil
}

func (s *Store) UpdatePlan(ctx context.Context, id int64, in plan.Input) (plan.WeeklyPlan, error) {
	var rec plan.WeeklyPlan
	err := s.watch(ctx, func(tx *redis.Tx) error {
		if err := s.load(ctx, tx, kindPlan, id, &rec); err != nil {
			return err
		}
		previous := rec.WeekStartDate
		moved := in.WeekStartDate != previous
		if moved {
			if err := s.claimWeek(ctx, tx, rec.UserID, in.WeekStartDate, id); err != nil {
				return err
			}
		}

		rec.WeekStartDate = in.WeekStartDate
		rec.WeekEndDate = in.WeekEndDate
		rec.IdeaIDs = idsOrEmpty(in.IdeaIDs)
		rec.UpdatedAt = time.Now().UTC()
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if moved {
				pipe.HDel(ctx, s.userPlansKey(rec.UserID), previous)
			}
			return s.put(ctx, pipe, kindPlan, id, rec)
		})
		if err != nil && moved {
			s.client.HDel(ctx, s.userPlansKey(rec.UserID), in.WeekStartDate)
		}
		return err
	}, s.recordKey(kindPlan, id))
	if err != nil {
		return plan.WeeklyPlan{}, wrapErr(err, "update plan %d", id)
	}
	return rec, nil
}

func (s *Store) GetPlan(ctx context.Context, id int64) (plan.WeeklyPlan, error) {
	var rec plan.WeeklyPlan
	if err := s.load(ctx, s.client, kindPlan, id, &rec); err != nil {
		return plan.WeeklyPlan{}, err
	}
	return rec, nil
}

func (s *Store) GetLatestPlanForUser(ctx context.Context, userID int64) (plan.WeeklyPlan, error) {
	plans, err := s.ListPlansForUser(ctx, userID)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}
	if len(plans) == 0 {
		return plan.WeeklyPlan{}, fmt.Errorf("plan for user %d: %w", userID, storage.ErrNotFound)
	}
	return plans[len(plans)-1], nil
}

func (s *Store) ListPlansForUser(ctx context.Context, userID int64) ([]plan.WeeklyPlan, error) {
	values, err := s.client.HVals(ctx, s.userPlansKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read plans for user %d: %w", userID, err)
	}
	ids, err := parseIDs(values)
	if err != nil {
		return nil, err
	}
	plans, err := loadMany[plan.WeeklyPlan](ctx, s, kindPlan, ids)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(plans, func(a, b plan.WeeklyPlan) int {
		if c := strings.Compare(a.WeekStartDate, b.WeekStartDate); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return plans, nil
}

func (s *Store) DeletePlan(ctx context.Context, id int64) error {
	return removeRecord(ctx, s, kindPlan, id, func(pipe redis.Pipeliner, rec plan.WeeklyPlan) {
		pipe.HDel(ctx, s.userPlansKey(rec.UserID), rec.WeekStartDate)
	})
}

func (s *Store) claimWeek(ctx context.Context, c claimer, userID int64, weekStart string, id int64) error {
	claimed, err := c.HSetNX(ctx, s.userPlansKey(userID), weekStart, id).Result()
	if err != nil {
		return fmt.Errorf("claim week %s for user %d: %w", weekStart, userID, err)
	}
	if !claimed {
		return fmt.Errorf("plan for user %d week %s: %w", userID, weekStart, storage.ErrConflict)
	}
	return nil
}

// --- InvitationStore --------------------------------------------------------

func (s *Store) CreateInvitation(ctx context.Context, in invitation.Input, status string) (invitation.Invitation, error) {
	id, err := s.nextID(ctx, kindInvitation)
	if err != nil {
		return invitation.Invitation{}, err
	}
	now := time.Now().UTC()
	rec := invitation.Invitation{
		ID:           id,
		InviterID:    in.InviterID,
		InviteeEmail: in.InviteeEmail,
		Message:      in.Message,
		EventID:      in.EventID,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.write(ctx, func(pipe redis.Pipeliner) error {
		return s.put(ctx, pipe, kindInvitation, id, rec)
	})
	if err != nil {
		return invitation.Invitation{}, fmt.Errorf("create invitation: %w", err)
	}
	return rec, nil
}

func (s *Store) UpdateInvitationStatus(ctx context.Context, id int64, status string) (invitation.Invitation, error) {
	var rec invitation.Invitation
	err := s.watch(ctx, func(tx *redis.Tx) error {
		if err := s.load(ctx, tx, kindInvitation, id, &rec); err != nil {
			return err
		}
		rec.Status = status
		rec.UpdatedAt = time.Now().UTC()
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return s.put(ctx, pipe, kindInvitation, id, rec)
		})
		return err
	}, s.recordKey(kindInvitation, id))
	if err != nil {
		return invitation.Invitation{}, wrapErr(err, "update invitation %d", id)
	}
	return rec, nil
}

func (s *Store) GetInvitation(ctx context.Context, id int64) (invitation.Invitation, error) {
	var rec invitation.Invitation
	if err := s.load(ctx, s.client, kindInvitation, id, &rec); err != nil {
		return invitation.Invitation{}, err
	}
	return rec, nil
}

func (s *Store) ListInvitations(ctx context.Context) ([]invitation.Invitation, error) {
	return loadIndexed[invitation.Invitation](ctx, s, kindInvitation)
}

func (s *Store) ListInvitationsByInviter(ctx context.Context, inviterID int64) ([]invitation.Invitation, error) {
	return s.filterInvitations(ctx, func(rec invitation.Invitation) bool { return rec.InviterID == inviterID })
}

func (s *Store) ListInvitationsByEvent(ctx context.Context, eventID int64) ([]invitation.Invitation, error) {
	return s.filterInvitations(ctx, func(rec invitation.Invitation) bool {
		return rec.EventID != nil && *rec.EventID == eventID
	})
}

func (s *Store) ListInvitationsByStatus(ctx context.Context, status string) ([]invitation.Invitation, error) {
	return s.filterInvitations(ctx, func(rec invitation.Invitation) bool { return rec.Status == status })
}

func (s *Store) DeleteInvitation(ctx context.Context, id int64) error {
	return removeRecord[invitation.Invitation](ctx, s, kindInvitation, id, nil)
}

func (s *Store) filterInvitations(ctx context.Context, keep func(invitation.Invitation) bool) ([]invitation.Invitation, error) {
	all, err := s.ListInvitations(ctx)
	if err != nil {
		return nil, err
	}
	return filter(all, keep), nil
}

func tagsOrEmpty(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

func idsOrEmpty(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}
